package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/logfields"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
)

// DefaultDynamicRequireSeverity tells Opal to ignore requires it cannot
// resolve statically.
const DefaultDynamicRequireSeverity = "ignore"

// Options are passed through to the compiler.
type Options struct {
	DynamicRequireSeverity string
	ExtraArgs              []string
}

// Request describes one compilation.
type Request struct {
	// Module is the logical module, e.g. asciidoctor/converter/manpage.
	Module  string
	Roots   SourceRoots
	Options Options
}

// Compiler produces the compiled script for a request.
type Compiler interface {
	Compile(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a plain function to the Compiler interface.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// BinaryCompiler invokes the opal executable and captures stdout as the
// compiled script.
type BinaryCompiler struct {
	Binary string
}

// NewBinaryCompiler creates a BinaryCompiler for binary ("opal" when empty).
func NewBinaryCompiler(binary string) *BinaryCompiler {
	if binary == "" {
		binary = "opal"
	}
	return &BinaryCompiler{Binary: binary}
}

// Args builds the command line for req. entry is the resolved source file.
func (b *BinaryCompiler) Args(req Request, entry string) []string {
	severity := req.Options.DynamicRequireSeverity
	if severity == "" {
		severity = DefaultDynamicRequireSeverity
	}
	args := []string{"--compile", "--no-opal", "--no-exit", "--dynamic-require", severity}
	for _, dir := range req.Roots.Dirs() {
		if dir == "" {
			continue
		}
		args = append(args, "-I", dir)
	}
	args = append(args, req.Options.ExtraArgs...)
	return append(args, entry)
}

func (b *BinaryCompiler) Compile(ctx context.Context, req Request) ([]byte, error) {
	binary, err := exec.LookPath(b.Binary)
	if err != nil {
		return nil, perrors.CompileFailed(req.Module, fmt.Errorf("compiler binary %q not found: %w", b.Binary, err))
	}

	entry, root, err := req.Roots.Resolve(req.Module)
	if err != nil {
		return nil, perrors.CompileFailed(req.Module, err)
	}
	observability.DebugContext(ctx, "Resolved module source", logfields.Path(entry), slog.String("root", root.Name))

	cmd := exec.CommandContext(ctx, binary, b.Args(req, entry)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	observability.DebugContext(ctx, "Invoking compiler", slog.String("binary", binary), slog.Any("args", cmd.Args[1:]))
	runErr := cmd.Run()

	errStr := strings.TrimSpace(stderr.String())
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && errStr != "" {
			return nil, perrors.CompileFailed(req.Module, fmt.Errorf("%w: %s", runErr, errStr)).
				WithContext("stderr", errStr)
		}
		return nil, perrors.CompileFailed(req.Module, runErr)
	}
	if errStr != "" {
		observability.WarnContext(ctx, "compiler stderr", slog.String("error_output", errStr))
	}

	return stdout.Bytes(), nil
}
