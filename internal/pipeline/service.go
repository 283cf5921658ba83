package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/umdbuilder/internal/bundle"
	"git.home.luguber.info/inful/umdbuilder/internal/compiler"
	"git.home.luguber.info/inful/umdbuilder/internal/config"
	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/eventstore"
	"git.home.luguber.info/inful/umdbuilder/internal/fetch"
	"git.home.luguber.info/inful/umdbuilder/internal/loader"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/metrics"
	"git.home.luguber.info/inful/umdbuilder/internal/notify"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
	"git.home.luguber.info/inful/umdbuilder/internal/publish"
	"git.home.luguber.info/inful/umdbuilder/internal/workspace"
)

// Service runs the build pipeline for one configuration.
type Service struct {
	cfg      *config.Config
	fetcher  fetch.Fetcher
	compiler compiler.Compiler
	recorder metrics.Recorder
	history  eventstore.Store
	notifier notify.Notifier
	newID    func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithFetcher replaces the fetcher chosen from the source strategy.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithCompiler replaces the opal binary compiler.
func WithCompiler(c compiler.Compiler) Option {
	return func(s *Service) { s.compiler = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithHistory records stage events in store.
func WithHistory(store eventstore.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithNotifier announces published artifacts.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithBuildIDFunc overrides build ID generation (used by tests).
func WithBuildIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service. cfg must already carry defaults and be valid.
func NewService(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		notifier: notify.NoopNotifier{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = FetcherFor(cfg.Source)
	}
	if s.compiler == nil {
		s.compiler = compiler.NewBinaryCompiler(cfg.Compiler.Binary)
	}
	return s
}

// FetcherFor returns the fetcher for the configured source strategy.
func FetcherFor(src config.SourceConfig) fetch.Fetcher {
	if src.Strategy == config.StrategyGit {
		return fetch.NewGitFetcher(src.GitURL, src.ExtractDir)
	}
	return fetch.NewArchiveFetcher(src.ArchiveURL, src.ArchiveName, src.ExtractDir)
}

// Run evaluates the environment gate and, unless short-circuited, executes
// every stage. A non-nil error is always a *errors.PipelineError and the
// returned Result is never nil.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	res := &Result{StartTime: time.Now()}

	decision := Decide(s.cfg.Overrides)
	switch decision.Action {
	case ActionSkip:
		slog.Info(decision.Reason)
		res.finish(StatusSkipped)
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSkipped)
		return res, nil
	case ActionDryRun:
		slog.Info(decision.Reason)
		for _, p := range Plan(s.cfg) {
			slog.Info("Planned stage", logfields.Stage(p.Name), slog.String("action", p.Detail))
		}
		res.finish(StatusDryRun)
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeDryRun)
		return res, nil
	case ActionRun:
	}

	res.BuildID = s.newID()
	ctx = observability.WithBuildID(ctx, res.BuildID)
	ctx = observability.WithModule(ctx, s.cfg.Compiler.Module)
	observability.InfoContext(ctx, "Starting build",
		logfields.Version(s.cfg.Source.Version),
		logfields.Strategy(string(s.cfg.Source.Strategy)))
	s.record(ctx, func() (*eventstore.Event, error) {
		return eventstore.NewBuildStarted(res.BuildID, eventstore.BuildStartedPayload{
			Version:  s.cfg.Source.Version,
			Module:   s.cfg.Compiler.ModuleID(),
			Strategy: string(s.cfg.Source.Strategy),
		})
	})

	b := &run{ws: workspace.NewManager(s.cfg.Paths.Workspace)}
	steps := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{StageClean, s.clean},
		{StageFetch, s.fetch},
		{StageCompile, s.compile},
		{StageUMD, s.umd},
		{StagePublish, s.publish},
	}

	for _, step := range steps {
		if err := s.stage(ctx, res, step.name, func(ctx context.Context) error { return step.fn(ctx, b) }); err != nil {
			res.FailedStage = step.name
			res.finish(StatusFailed)
			outcome := metrics.BuildOutcomeFailed
			if ctx.Err() != nil {
				outcome = metrics.BuildOutcomeCanceled
			}
			s.recorder.IncBuildOutcome(outcome)
			s.recorder.ObserveBuildDuration(res.Duration)
			s.recordFinished(ctx, res)
			return res, err
		}
	}

	res.ArtifactPath = b.artifact.Path
	res.ArtifactSHA256 = b.artifact.SHA256
	res.ArtifactBytes = b.artifact.Bytes
	res.Substitutions = b.substitutions
	res.finish(StatusSuccess)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	s.recorder.ObserveBuildDuration(res.Duration)
	s.recordFinished(ctx, res)
	observability.InfoContext(ctx, "Build complete",
		logfields.Path(res.ArtifactPath),
		slog.String("sha256", res.ArtifactSHA256),
		logfields.Duration(res.Duration))
	return res, nil
}

// run carries state between the stages of one build.
type run struct {
	ws            *workspace.Manager
	sourceDir     string
	compiled      string
	substitutions int
	artifact      *publish.Artifact
}

func (s *Service) stage(ctx context.Context, res *Result, name string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, name)
	if err := ctx.Err(); err != nil {
		perr := perrors.Wrap(err, perrors.CategoryRuntime, perrors.SeverityFatal, "build canceled").
			WithContext("stage", name)
		res.Stages = append(res.Stages, StageTiming{Stage: name, Err: perr})
		s.recorder.IncStageResult(name, metrics.ResultCanceled)
		s.record(ctx, func() (*eventstore.Event, error) {
			return eventstore.NewStageFailed(res.BuildID, name, 0, string(perrors.CategoryRuntime), perr)
		})
		return perr
	}

	observability.InfoContext(ctx, "Running stage")
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	res.Stages = append(res.Stages, StageTiming{Stage: name, Duration: d, Err: err})
	s.recorder.ObserveStageDuration(name, d)

	if err != nil {
		result := metrics.ResultFatal
		if ctx.Err() != nil {
			result = metrics.ResultCanceled
		}
		s.recorder.IncStageResult(name, result)
		observability.ErrorContext(ctx, "Stage failed", logfields.Error(err), logfields.Duration(d))
		s.record(ctx, func() (*eventstore.Event, error) {
			return eventstore.NewStageFailed(res.BuildID, name, d, string(perrors.GetCategory(err)), err)
		})
		return err
	}

	s.recorder.IncStageResult(name, metrics.ResultSuccess)
	observability.DebugContext(ctx, "Stage complete", logfields.Duration(d))
	s.record(ctx, func() (*eventstore.Event, error) {
		return eventstore.NewStageCompleted(res.BuildID, name, d)
	})
	return nil
}

func (s *Service) clean(_ context.Context, b *run) error {
	return b.ws.Reset()
}

func (s *Service) fetch(ctx context.Context, b *run) error {
	out, err := s.fetcher.Fetch(ctx, fetch.Request{Version: s.cfg.Source.Version, WorkspaceDir: b.ws.GetPath()})
	if err != nil {
		if _, ok := perrors.As(err); ok {
			return err
		}
		return perrors.FetchFailed(fetch.ArchiveURL(s.cfg.Source.ArchiveURL, s.cfg.Source.Version), err)
	}
	b.sourceDir = out.SourceDir
	if out.Bytes > 0 {
		s.recorder.ObserveDownloadBytes(out.Bytes)
	}
	return nil
}

func (s *Service) compile(ctx context.Context, b *run) error {
	module := s.cfg.Compiler.ModuleID()
	req := compiler.Request{
		Module: module,
		Roots:  compiler.NewSourceRoots(s.cfg.Paths.Overrides, filepath.Join(b.sourceDir, "lib"), s.cfg.Compiler.StdlibPath),
		Options: compiler.Options{
			DynamicRequireSeverity: s.cfg.Compiler.DynamicRequireSeverity,
			ExtraArgs:              s.cfg.Compiler.ExtraArgs,
		},
	}
	out, err := s.compiler.Compile(ctx, req)
	if err != nil {
		if _, ok := perrors.As(err); ok {
			return err
		}
		return perrors.CompileFailed(module, err)
	}

	b.compiled = b.ws.Join(compiledName(s.cfg.Compiler.Module))
	if err := os.WriteFile(b.compiled, out, 0o644); err != nil { //nolint:gosec // build output is world readable
		return perrors.WorkspaceError("write", b.compiled, err)
	}
	observability.DebugContext(ctx, "Compiled module written", logfields.Path(b.compiled), logfields.Bytes(int64(len(out))))
	return nil
}

func (s *Service) umd(ctx context.Context, b *run) error {
	if err := bundle.Concat([]string{b.compiled}, b.compiled); err != nil {
		return perrors.WorkspaceError("concat", b.compiled, err)
	}

	code, err := os.ReadFile(b.compiled)
	if err != nil {
		return perrors.WorkspaceError("read", b.compiled, err)
	}

	tpl, err := loader.Load(s.cfg.Paths.Template)
	if err != nil {
		return perrors.TemplateFailed(s.cfg.Paths.Template, err)
	}

	n, err := bundle.RenderTo(ctx, tpl, bundle.Context{loader.Placeholder: string(code)}, b.compiled)
	if err != nil {
		return perrors.TemplateFailed(s.cfg.Paths.Template, err)
	}
	b.substitutions = n
	return nil
}

func (s *Service) publish(ctx context.Context, b *run) error {
	artifact, err := publish.New(s.cfg.Output.Directory, s.cfg.Output.Filename).Publish(b.compiled)
	if err != nil {
		return err
	}
	b.artifact = artifact
	s.recorder.SetArtifactBytes(artifact.Bytes)

	ev := notify.ArtifactEvent{
		BuildID: observability.GetContext(ctx).BuildID,
		Version: s.cfg.Source.Version,
		Module:  s.cfg.Compiler.ModuleID(),
		Path:    artifact.Path,
		SHA256:  artifact.SHA256,
		Bytes:   artifact.Bytes,
	}
	if err := s.notifier.ArtifactPublished(ctx, ev); err != nil {
		observability.WarnContext(ctx, "Artifact notification failed", logfields.Error(err))
	}
	return nil
}

func (s *Service) record(ctx context.Context, build func() (*eventstore.Event, error)) {
	if s.history == nil {
		return
	}
	ev, err := build()
	if err == nil {
		err = s.history.Append(context.WithoutCancel(ctx), ev)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}

func (s *Service) recordFinished(ctx context.Context, res *Result) {
	s.record(ctx, func() (*eventstore.Event, error) {
		return eventstore.NewBuildFinished(res.BuildID, eventstore.BuildFinishedPayload{
			Status:     string(res.Status),
			DurationMS: res.Duration.Milliseconds(),
			Artifact:   res.ArtifactPath,
			SHA256:     res.ArtifactSHA256,
		})
	})
}
