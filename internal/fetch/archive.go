package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
)

const maxRedirects = 5

// NewHTTPClient creates the client used for archive downloads. It follows a
// bounded number of redirects and sets no overall timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// ArchiveFetcher downloads a gzip tarball and extracts it into the workspace.
type ArchiveFetcher struct {
	URLTemplate string
	ArchiveName string
	ExtractDir  string
	Client      *http.Client
}

// NewArchiveFetcher creates an ArchiveFetcher with the default HTTP client.
func NewArchiveFetcher(urlTemplate, archiveName, extractDir string) *ArchiveFetcher {
	return &ArchiveFetcher{
		URLTemplate: urlTemplate,
		ArchiveName: archiveName,
		ExtractDir:  extractDir,
		Client:      NewHTTPClient(),
	}
}

// Fetch downloads the archive for req.Version once and extracts it.
func (f *ArchiveFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	url := ArchiveURL(f.URLTemplate, req.Version)
	archivePath := filepath.Join(req.WorkspaceDir, f.ArchiveName)
	sourceDir := filepath.Join(req.WorkspaceDir, f.ExtractDir)

	observability.InfoContext(ctx, "Downloading source archive", logfields.URL(url), logfields.Path(archivePath))
	n, err := f.download(ctx, url, archivePath)
	if err != nil {
		return nil, perrors.FetchFailed(url, err)
	}
	observability.DebugContext(ctx, "Archive downloaded", logfields.URL(url), logfields.Bytes(n))

	files, err := ExtractTarGz(archivePath, sourceDir)
	if err != nil {
		return nil, perrors.ExtractFailed(archivePath, err)
	}
	observability.InfoContext(ctx, "Archive extracted", logfields.Path(sourceDir), logfields.Count(files))

	return &Result{SourceDir: sourceDir, Origin: url, Bytes: n}, nil
}

func (f *ArchiveFetcher) download(ctx context.Context, url, dest string) (int64, error) {
	client := f.Client
	if client == nil {
		client = NewHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	return n, nil
}
