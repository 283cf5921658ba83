package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce    time.Duration `help:"Quiet period before rebuilding" default:"500ms"`
	MetricsFile string        `name:"metrics-file" help:"Write Prometheus metrics in textfile format after each build"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	build := func(ctx context.Context) error {
		start := time.Now()
		// reload so edits to the configuration file take effect
		current, err := loadConfig(root)
		if err != nil {
			slog.Error("Failed to load configuration", logfields.Error(err))
			return err
		}
		res, err := runPipeline(ctx, current, w.MetricsFile)
		if err != nil {
			slog.Error("Build failed", logfields.Error(err))
			return err
		}
		slog.Info("Build finished", slog.String("status", string(res.Status)), logfields.Duration(time.Since(start)))
		return nil
	}

	// an initial failure is reported but watching continues so it can be fixed
	_ = build(ctx)

	watcher, err := watch.New([]string{cfg.Paths.Overrides, cfg.Paths.Template, root.Config}, w.Debounce, build)
	if err != nil {
		return perrors.ValidationFailed("paths.overrides", err.Error())
	}
	return watcher.Run(ctx)
}
