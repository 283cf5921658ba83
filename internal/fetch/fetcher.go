package fetch

import (
	"context"
	"strings"
)

// Request describes one fetch of the upstream sources.
type Request struct {
	Version      string
	WorkspaceDir string
}

// Result reports where the sources were placed.
type Result struct {
	// SourceDir is the extracted tree, e.g. build/asciidoctor.
	SourceDir string
	// Origin is the URL the sources came from.
	Origin string
	// Bytes downloaded (zero for strategies that cannot tell).
	Bytes int64
}

// Fetcher places the sources of one upstream version into the workspace.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// VersionPlaceholder is substituted by the pinned version in URL templates.
const VersionPlaceholder = "{version}"

// ArchiveURL derives the deterministic download URL for version.
func ArchiveURL(template, version string) string {
	return strings.ReplaceAll(template, VersionPlaceholder, version)
}

// TagName returns the upstream release tag for version.
func TagName(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}
