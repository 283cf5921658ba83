// Package loader holds the universal module-loader shell the compiled
// converter is wrapped in.
package loader

import (
	_ "embed"
	"fmt"
	"os"
)

// Placeholder is the template line replaced by the compiled converter code.
const Placeholder = "//#{asciidoctorManPageCode}"

//go:embed template-manpage.js
var defaultTemplate string

// Default returns the embedded loader template.
func Default() string {
	return defaultTemplate
}

// Load returns the template at path, or the embedded one when path is empty.
func Load(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return "", fmt.Errorf("read loader template: %w", err)
	}
	return string(data), nil
}
