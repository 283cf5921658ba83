// Package fetch downloads the pinned upstream sources into the workspace.
//
// The default ArchiveFetcher performs exactly one GET of a URL derived from
// the pinned version and extracts the tarball; GitFetcher is the alternative
// shallow-clone strategy. Neither retries: a failure aborts the pipeline.
package fetch
