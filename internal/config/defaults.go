package config

import (
	"fmt"
	"strings"
)

// Defaults mirror the layout the loader template and downstream consumers expect.
const (
	DefaultVersion                = "2.0.7"
	DefaultArchiveURL             = "https://codeload.github.com/asciidoctor/asciidoctor/tar.gz/v{version}"
	DefaultArchiveName            = "asciidoctor.tar.gz"
	DefaultGitURL                 = "https://github.com/asciidoctor/asciidoctor.git"
	DefaultExtractDir             = "asciidoctor"
	DefaultCompilerBinary         = "opal"
	DefaultModulePrefix           = "asciidoctor/converter"
	DefaultModule                 = "manpage"
	DefaultDynamicRequireSeverity = "ignore"
	DefaultWorkspace              = "build"
	DefaultOverrides              = "lib"
	DefaultOutputDirectory        = "dist"
	DefaultOutputFilename         = "main.js"
	DefaultNotifySubject          = "umdbuilder.artifact.published"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SourceDefaultApplier handles source configuration defaults.
type SourceDefaultApplier struct{}

func (SourceDefaultApplier) Domain() string { return "source" }

func (SourceDefaultApplier) ApplyDefaults(cfg *Config) error {
	s := &cfg.Source
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	s.Version = strings.TrimPrefix(strings.TrimSpace(s.Version), "v")
	if s.Strategy == "" {
		s.Strategy = StrategyArchive
	} else {
		s.Strategy = SourceStrategy(strings.ToLower(strings.TrimSpace(string(s.Strategy))))
	}
	if s.ArchiveURL == "" {
		s.ArchiveURL = DefaultArchiveURL
	}
	if s.ArchiveName == "" {
		s.ArchiveName = DefaultArchiveName
	}
	if s.GitURL == "" {
		s.GitURL = DefaultGitURL
	}
	if s.ExtractDir == "" {
		s.ExtractDir = DefaultExtractDir
	}
	return nil
}

// CompilerDefaultApplier handles compiler configuration defaults.
type CompilerDefaultApplier struct{}

func (CompilerDefaultApplier) Domain() string { return "compiler" }

func (CompilerDefaultApplier) ApplyDefaults(cfg *Config) error {
	c := &cfg.Compiler
	if c.Binary == "" {
		c.Binary = DefaultCompilerBinary
	}
	if c.ModulePrefix == "" {
		c.ModulePrefix = DefaultModulePrefix
	}
	if c.Module == "" {
		c.Module = DefaultModule
	}
	if c.DynamicRequireSeverity == "" {
		c.DynamicRequireSeverity = DefaultDynamicRequireSeverity
	}
	return nil
}

// PathsDefaultApplier handles workspace and output location defaults.
type PathsDefaultApplier struct{}

func (PathsDefaultApplier) Domain() string { return "paths" }

func (PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Workspace == "" {
		cfg.Paths.Workspace = DefaultWorkspace
	}
	if cfg.Paths.Overrides == "" {
		cfg.Paths.Overrides = DefaultOverrides
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDirectory
	}
	if cfg.Output.Filename == "" {
		cfg.Output.Filename = DefaultOutputFilename
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		SourceDefaultApplier{},
		CompilerDefaultApplier{},
		PathsDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("apply %s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}

// ModuleID returns the logical module identifier handed to the compiler,
// e.g. asciidoctor/converter/manpage.
func (c CompilerConfig) ModuleID() string {
	if c.ModulePrefix == "" {
		return c.Module
	}
	return strings.TrimSuffix(c.ModulePrefix, "/") + "/" + c.Module
}

