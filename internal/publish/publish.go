// Package publish copies the bundled script into the distribution directory.
package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/workspace"
)

// Artifact describes the published file.
type Artifact struct {
	Path   string
	SHA256 string
	Bytes  int64
}

// Publisher owns the distribution directory.
type Publisher struct {
	Dir      string
	Filename string
}

// New creates a Publisher writing dir/filename.
func New(dir, filename string) *Publisher {
	return &Publisher{Dir: dir, Filename: filename}
}

// Destination returns the artifact path.
func (p *Publisher) Destination() string {
	return filepath.Join(p.Dir, p.Filename)
}

// Publish empties the distribution directory and copies src into it. After a
// successful call the directory holds exactly one file.
func (p *Publisher) Publish(src string) (*Artifact, error) {
	dest := p.Destination()

	in, err := os.Open(src) //nolint:gosec // src is the bundle in the workspace
	if err != nil {
		return nil, perrors.PublishFailed(dest, fmt.Errorf("open bundle: %w", err))
	}
	defer func() { _ = in.Close() }()

	slog.Debug("Resetting distribution directory", logfields.Path(p.Dir))
	if err := workspace.Reset(p.Dir); err != nil {
		return nil, err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // artifact is world readable
	if err != nil {
		return nil, perrors.PublishFailed(dest, err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, perrors.PublishFailed(dest, err)
	}

	return &Artifact{Path: dest, SHA256: hex.EncodeToString(h.Sum(nil)), Bytes: n}, nil
}
