package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`

	out io.Writer `kong:"-"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.Database == "" {
		return perrors.ValidationFailed("history.database", "no history database configured")
	}

	store, err := eventstore.NewSQLiteStore(cfg.History.Database)
	if err != nil {
		return perrors.WorkspaceError("open", cfg.History.Database, err)
	}
	defer func() { _ = store.Close() }()

	builds, err := eventstore.Recent(context.Background(), store, h.Limit)
	if err != nil {
		return perrors.InternalError("read build history", err)
	}

	out := h.out
	if out == nil {
		out = os.Stdout
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tDURATION\tFAILED STAGE\tSHA256")
	for _, b := range builds {
		failed := "-"
		for _, s := range b.Stages {
			if s.Failed {
				failed = s.Name
			}
		}
		sum := b.SHA256
		if len(sum) > 12 {
			sum = sum[:12]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.BuildID, b.StartedAt.Format(time.RFC3339), b.Status, b.Duration, failed, sum)
	}
	return tw.Flush()
}
