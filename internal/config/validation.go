package config

import (
	"path/filepath"
	"strings"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
)

// ValidateConfig validates a configuration after defaults have been applied.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSource(); err != nil {
		return err
	}
	if err := cv.validateCompiler(); err != nil {
		return err
	}
	return cv.validatePaths()
}

func (cv *configurationValidator) validateSource() error {
	s := cv.config.Source
	if s.Version == "" {
		return perrors.ValidationFailed("source.version", "must not be empty")
	}
	switch s.Strategy {
	case StrategyArchive:
		if !strings.Contains(s.ArchiveURL, "{version}") {
			return perrors.ValidationFailed("source.archive_url", "must contain the {version} placeholder")
		}
	case StrategyGit:
		if s.GitURL == "" {
			return perrors.ValidationFailed("source.git_url", "must not be empty for the git strategy")
		}
	default:
		return perrors.ValidationFailed("source.strategy", "unsupported value "+string(s.Strategy))
	}
	if !isPlainName(s.ExtractDir) {
		return perrors.ValidationFailed("source.extract_dir", "must be a single path element")
	}
	if !isPlainName(s.ArchiveName) {
		return perrors.ValidationFailed("source.archive_name", "must be a single path element")
	}
	return nil
}

func (cv *configurationValidator) validateCompiler() error {
	c := cv.config.Compiler
	if c.Module == "" {
		return perrors.ValidationFailed("compiler.module", "must not be empty")
	}
	switch c.DynamicRequireSeverity {
	case "ignore", "warning", "error":
	default:
		return perrors.ValidationFailed("compiler.dynamic_require_severity", "must be ignore, warning or error")
	}
	return nil
}

func (cv *configurationValidator) validatePaths() error {
	p := cv.config.Paths
	o := cv.config.Output
	if !isPlainName(o.Filename) {
		return perrors.ValidationFailed("output.filename", "must be a single path element")
	}
	ws, err := filepath.Abs(p.Workspace)
	if err != nil {
		return perrors.ValidationFailed("paths.workspace", err.Error())
	}
	dist, err := filepath.Abs(o.Directory)
	if err != nil {
		return perrors.ValidationFailed("output.directory", err.Error())
	}
	if ws == dist {
		return perrors.ValidationFailed("output.directory", "must differ from paths.workspace")
	}
	if isWithin(ws, dist) || isWithin(dist, ws) {
		return perrors.ValidationFailed("output.directory", "must not be nested with paths.workspace")
	}
	// Inputs must survive the clean and publish stages.
	inputs := []struct{ field, value string }{
		{"paths.overrides", p.Overrides},
		{"paths.template", p.Template},
	}
	for _, in := range inputs {
		if in.value == "" {
			continue
		}
		abs, err := filepath.Abs(in.value)
		if err != nil {
			return perrors.ValidationFailed(in.field, err.Error())
		}
		if abs == ws || isWithin(ws, abs) {
			return perrors.ValidationFailed(in.field, "must not be inside paths.workspace")
		}
		if abs == dist || isWithin(dist, abs) {
			return perrors.ValidationFailed(in.field, "must not be inside output.directory")
		}
	}
	return nil
}

func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// isWithin reports whether child is strictly below parent.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
