package compiler

import (
	"fmt"
	"os"
	"path/filepath"
)

// SourceRoot is one directory searched for Ruby sources.
type SourceRoot struct {
	// Name identifies the root in logs ("overrides", "upstream", "stdlib").
	Name string
	Dir  string
}

// SourceRoots is ordered highest priority first.
type SourceRoots []SourceRoot

// NewSourceRoots builds the standard priority list. An empty stdlib directory
// is left out.
func NewSourceRoots(overrides, upstream, stdlib string) SourceRoots {
	roots := SourceRoots{
		{Name: "overrides", Dir: overrides},
		{Name: "upstream", Dir: upstream},
	}
	if stdlib != "" {
		roots = append(roots, SourceRoot{Name: "stdlib", Dir: stdlib})
	}
	return roots
}

// Dirs returns the directories in priority order.
func (r SourceRoots) Dirs() []string {
	dirs := make([]string, 0, len(r))
	for _, root := range r {
		dirs = append(dirs, root.Dir)
	}
	return dirs
}

// Resolve returns the first <root>/<logical>.rb that exists and the root it
// was found in.
func (r SourceRoots) Resolve(logical string) (string, SourceRoot, error) {
	rel := filepath.FromSlash(logical) + ".rb"
	for _, root := range r {
		if root.Dir == "" {
			continue
		}
		candidate := filepath.Join(root.Dir, rel)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, root, nil
		}
	}
	return "", SourceRoot{}, fmt.Errorf("module %s not found in %d source roots", logical, len(r))
}
