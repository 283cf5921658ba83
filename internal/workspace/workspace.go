package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
)

const dirPerm = 0o750

// Reset recursively removes dir if present and recreates it empty.
func Reset(dir string) error {
	if dir == "" {
		return perrors.WorkspaceError("reset", dir, fmt.Errorf("empty directory path"))
	}
	if err := os.RemoveAll(dir); err != nil {
		return perrors.WorkspaceError("remove", dir, err)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return perrors.WorkspaceError("create", dir, err)
	}
	return nil
}

// Manager handles the transient workspace directory.
type Manager struct {
	dir string
}

// NewManager creates a workspace manager rooted at dir (not touched until Reset).
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Reset clears and recreates the workspace.
func (m *Manager) Reset() error {
	slog.Debug("Resetting workspace", logfields.Path(m.dir))
	return Reset(m.dir)
}

// GetPath returns the path to the workspace directory.
func (m *Manager) GetPath() string {
	return m.dir
}

// Join returns a path inside the workspace.
func (m *Manager) Join(elem ...string) string {
	return filepath.Join(append([]string{m.dir}, elem...)...)
}
