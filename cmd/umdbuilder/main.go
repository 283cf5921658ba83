package main

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/umdbuilder/cmd/umdbuilder/commands"
	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
)

func main() {
	cli := &commands.CLI{}
	parser, err := commands.NewParser(cli)
	if err != nil {
		slog.Error("Failed to initialize CLI", "error", err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kctx.Run(&commands.Global{Logger: slog.Default()}, cli)
	perrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
