package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
)

// GitFetcher shallow-clones the release tag of the upstream repository.
type GitFetcher struct {
	URL        string
	ExtractDir string
}

// NewGitFetcher creates a GitFetcher.
func NewGitFetcher(url, extractDir string) *GitFetcher {
	return &GitFetcher{URL: url, ExtractDir: extractDir}
}

// Fetch clones tag v<version> at depth 1 and drops the .git directory so the
// tree looks like an extracted archive.
func (f *GitFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	tag := TagName(req.Version)
	sourceDir := filepath.Join(req.WorkspaceDir, f.ExtractDir)

	observability.InfoContext(ctx, "Cloning upstream sources", logfields.URL(f.URL), slog.String("tag", tag), logfields.Path(sourceDir))
	repo, err := git.PlainCloneContext(ctx, sourceDir, false, &git.CloneOptions{
		URL:           f.URL,
		ReferenceName: plumbing.NewTagReferenceName(tag),
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	})
	if err != nil {
		return nil, perrors.GitFetchFailed(f.URL, tag, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		observability.DebugContext(ctx, "Upstream checked out", slog.String("commit", ref.Hash().String()))
	}

	if err := os.RemoveAll(filepath.Join(sourceDir, git.GitDirName)); err != nil {
		return nil, perrors.GitFetchFailed(f.URL, tag, fmt.Errorf("remove .git: %w", err))
	}

	return &Result{SourceDir: sourceDir, Origin: f.URL}, nil
}
