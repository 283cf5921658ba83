// Package bundle assembles the final script: concatenation of compiled parts
// and exact-line template substitution.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
)

// Context maps an exact template line to its replacement text.
type Context map[string]string

// Concat joins files in order into dst. All inputs are read before dst is
// written, so dst may be one of them.
func Concat(files []string, dst string) error {
	var buf bytes.Buffer
	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // paths are build outputs
		if err != nil {
			return fmt.Errorf("concat %s: %w", f, err)
		}
		buf.Write(data)
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil { //nolint:gosec // artifact is world readable
		return fmt.Errorf("concat write %s: %w", dst, err)
	}
	return nil
}

// Render replaces every line of template whose full text is a key of ctx
// with the mapped value. Lines are split and rejoined on "\n" only; the
// replacement is inserted verbatim. It returns the result and the number of
// lines replaced.
func Render(template string, ctx Context) (string, int) {
	if len(ctx) == 0 {
		return template, 0
	}
	lines := strings.Split(template, "\n")
	n := 0
	for i, line := range lines {
		if v, ok := ctx[line]; ok {
			lines[i] = v
			n++
		}
	}
	return strings.Join(lines, "\n"), n
}

// TemplateFile renders the template file tpl into out. A non-empty context
// that matched no line produces a warning; the output is still written.
func TemplateFile(ctx context.Context, tpl string, data Context, out string) (int, error) {
	raw, err := os.ReadFile(tpl) //nolint:gosec // template path comes from configuration
	if err != nil {
		return 0, fmt.Errorf("read template %s: %w", tpl, err)
	}
	return RenderTo(ctx, string(raw), data, out)
}

// RenderTo renders an in-memory template into out.
func RenderTo(ctx context.Context, template string, data Context, out string) (int, error) {
	rendered, n := Render(template, data)
	if n == 0 && len(data) > 0 {
		observability.WarnContext(ctx, "Template placeholder not found; output left unchanged",
			logfields.Path(out), logfields.Count(len(data)))
	}
	if err := os.WriteFile(out, []byte(rendered), 0o644); err != nil { //nolint:gosec // artifact is world readable
		return n, fmt.Errorf("write %s: %w", out, err)
	}
	return n, nil
}
