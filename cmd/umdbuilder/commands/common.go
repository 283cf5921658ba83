package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/umdbuilder/internal/config"
	"git.home.luguber.info/inful/umdbuilder/internal/eventstore"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/metrics"
	"git.home.luguber.info/inful/umdbuilder/internal/notify"
	"git.home.luguber.info/inful/umdbuilder/internal/pipeline"
	"git.home.luguber.info/inful/umdbuilder/internal/version"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults apply when missing)" default:"umdbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	EnvDir  string           `name:"env-dir" help:"Directory searched for .env and .env.local" default:"."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Fetch, compile, wrap and publish the converter (default)"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild whenever local overrides or the loader template change"`
	Init    InitCmd    `cmd:"" help:"Write a configuration file populated with the defaults"`
	History HistoryCmd `cmd:"" help:"Show recent builds recorded in the history database"`
}

// NewParser builds the kong parser for cli.
func NewParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	opts := append([]kong.Option{
		kong.Name("umdbuilder"),
		kong.Description("Builds the Asciidoctor manpage converter as a UMD bundle."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	}, options...)
	return kong.New(cli, opts...)
}

// AfterApply runs after flag parsing; setup logging once and load .env files.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if path, err := config.LoadDotEnv(c.EnvDir); err != nil {
		slog.Warn("Failed to load env file", logfields.Path(path), logfields.Error(err))
	} else if path != "" {
		slog.Debug("Loaded env file", logfields.Path(path))
	}
	return nil
}

// loadConfig reads the configuration file (or defaults) and the environment
// gate signals.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(root.Config)
	if err != nil {
		return nil, err
	}
	cfg.Overrides = config.OverridesFromEnv(nil)
	return cfg, nil
}

// runPipeline wires the optional recorder, history store and notifier around
// one pipeline run. Optional integrations are only opened when the build
// actually runs, and their failures never fail the build.
func runPipeline(ctx context.Context, cfg *config.Config, metricsFile string) (*pipeline.Result, error) {
	var opts []pipeline.Option
	runs := pipeline.Decide(cfg.Overrides).Action == pipeline.ActionRun

	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}
	var rec *metrics.PrometheusRecorder
	if runs && metricsFile != "" {
		rec = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, pipeline.WithRecorder(rec))
	}

	if runs && cfg.History.Database != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Database)
		if err != nil {
			slog.Warn("Build history disabled", logfields.Path(cfg.History.Database), logfields.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	if runs && cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Publish notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			defer func() { _ = n.Close() }()
			opts = append(opts, pipeline.WithNotifier(n))
		}
	}

	res, err := pipeline.NewService(cfg, opts...).Run(ctx)

	if rec != nil {
		if werr := rec.WriteTextfile(metricsFile); werr != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(metricsFile), logfields.Error(werr))
		}
	}
	return res, err
}
