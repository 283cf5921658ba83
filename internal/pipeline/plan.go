package pipeline

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/umdbuilder/internal/config"
	"git.home.luguber.info/inful/umdbuilder/internal/fetch"
)

// Stage names, in execution order.
const (
	StageClean   = "clean"
	StageFetch   = "fetch"
	StageCompile = "compile"
	StageUMD     = "umd"
	StagePublish = "publish"
)

// Stages lists every stage in execution order.
var Stages = []string{StageClean, StageFetch, StageCompile, StageUMD, StagePublish}

// PlannedStage describes what a stage would do.
type PlannedStage struct {
	Name   string
	Detail string
}

// Plan describes the stages for cfg without touching the filesystem or the
// network.
func Plan(cfg *config.Config) []PlannedStage {
	ws := cfg.Paths.Workspace
	srcDir := filepath.Join(ws, cfg.Source.ExtractDir)

	var fetchDetail string
	if cfg.Source.Strategy == config.StrategyGit {
		fetchDetail = "clone " + cfg.Source.GitURL + " at " + fetch.TagName(cfg.Source.Version) + " into " + srcDir
	} else {
		fetchDetail = "download " + fetch.ArchiveURL(cfg.Source.ArchiveURL, cfg.Source.Version) +
			" to " + filepath.Join(ws, cfg.Source.ArchiveName) + " and extract into " + srcDir
	}

	roots := []string{cfg.Paths.Overrides, filepath.Join(srcDir, "lib")}
	if cfg.Compiler.StdlibPath != "" {
		roots = append(roots, cfg.Compiler.StdlibPath)
	}

	template := cfg.Paths.Template
	if template == "" {
		template = "embedded loader template"
	}

	return []PlannedStage{
		{Name: StageClean, Detail: "reset " + ws},
		{Name: StageFetch, Detail: fetchDetail},
		{Name: StageCompile, Detail: "compile " + cfg.Compiler.ModuleID() + " with " + cfg.Compiler.Binary +
			" (roots: " + strings.Join(roots, ", ") + ") to " + compiledPath(cfg)},
		{Name: StageUMD, Detail: "wrap " + compiledPath(cfg) + " with " + template},
		{Name: StagePublish, Detail: "reset " + cfg.Output.Directory + " and copy to " +
			filepath.Join(cfg.Output.Directory, cfg.Output.Filename)},
	}
}

// compiledName is the workspace file holding the compiled module and, after
// the umd stage, the wrapped bundle.
func compiledName(module string) string {
	return "asciidoctor-" + module + ".js"
}

func compiledPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Workspace, compiledName(cfg.Compiler.Module))
}
