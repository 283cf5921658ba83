package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Skip        bool   `help:"Skip the build (same as SKIP_BUILD=true)"`
	DryRun      bool   `name:"dry-run" help:"Log the planned stages without running them (same as DRY_RUN=true)"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in textfile format after the build"`

	out io.Writer `kong:"-"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	start := time.Now()
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	cfg.Overrides.SkipBuild = cfg.Overrides.SkipBuild || b.Skip
	cfg.Overrides.DryRun = cfg.Overrides.DryRun || b.DryRun

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := runPipeline(ctx, cfg, b.MetricsFile); err != nil {
		return err
	}

	out := b.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "Done in %ds\n", int(time.Since(start).Seconds()))
	return nil
}
