package compiler

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/observability"
)

func writeRuby(t *testing.T, root, logical, body string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(logical)+".rb")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// fakeOpal writes a shell script standing in for the compiler.
func fakeOpal(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "opal")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0o700)) //nolint:gosec // test fixture must be executable
	return p
}

func TestNewSourceRoots_Order(t *testing.T) {
	roots := NewSourceRoots("lib", "build/asciidoctor/lib", "")
	require.Equal(t, []string{"lib", "build/asciidoctor/lib"}, roots.Dirs())

	roots = NewSourceRoots("lib", "build/asciidoctor/lib", "/opt/opal/stdlib")
	require.Equal(t, []string{"lib", "build/asciidoctor/lib", "/opt/opal/stdlib"}, roots.Dirs())
	require.Equal(t, "stdlib", roots[2].Name)
}

func TestResolve_OverrideShadowsUpstream(t *testing.T) {
	overrides := t.TempDir()
	upstream := t.TempDir()
	writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")
	want := writeRuby(t, overrides, "asciidoctor/converter/manpage", "# override")

	got, root, err := NewSourceRoots(overrides, upstream, "").Resolve("asciidoctor/converter/manpage")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, "overrides", root.Name)
}

func TestResolve_FallsBackToUpstream(t *testing.T) {
	overrides := t.TempDir()
	upstream := t.TempDir()
	want := writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")

	got, root, err := NewSourceRoots(overrides, upstream, "").Resolve("asciidoctor/converter/manpage")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, "upstream", root.Name)
}

func TestResolve_MissingOverridesDirIsFine(t *testing.T) {
	upstream := t.TempDir()
	writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")

	_, root, err := NewSourceRoots(filepath.Join(t.TempDir(), "absent"), upstream, "").Resolve("asciidoctor/converter/manpage")
	require.NoError(t, err)
	require.Equal(t, "upstream", root.Name)
}

func TestResolve_NotFound(t *testing.T) {
	_, _, err := NewSourceRoots(t.TempDir(), t.TempDir(), "").Resolve("asciidoctor/converter/manpage")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestBinaryCompiler_Args(t *testing.T) {
	b := NewBinaryCompiler("")
	require.Equal(t, "opal", b.Binary)

	req := Request{
		Module: "asciidoctor/converter/manpage",
		Roots:  NewSourceRoots("lib", "build/asciidoctor/lib", "stdlib"),
	}
	args := b.Args(req, "lib/asciidoctor/converter/manpage.rb")
	require.Equal(t, []string{
		"--compile", "--no-opal", "--no-exit", "--dynamic-require", "ignore",
		"-I", "lib", "-I", "build/asciidoctor/lib", "-I", "stdlib",
		"lib/asciidoctor/converter/manpage.rb",
	}, args)

	req.Options = Options{DynamicRequireSeverity: "warning", ExtraArgs: []string{"--esm"}}
	args = b.Args(req, "x.rb")
	require.Contains(t, strings.Join(args, " "), "--dynamic-require warning")
	require.Equal(t, []string{"--esm", "x.rb"}, args[len(args)-2:])
}

func TestBinaryCompiler_CapturesStdout(t *testing.T) {
	upstream := t.TempDir()
	writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")
	bin := fakeOpal(t, `echo "compiled $#"`)

	out, err := NewBinaryCompiler(bin).Compile(context.Background(), Request{
		Module: "asciidoctor/converter/manpage",
		Roots:  NewSourceRoots(t.TempDir(), upstream, ""),
	})
	require.NoError(t, err)
	// 5 fixed flags + 2 roots * 2 + entry
	require.Equal(t, "compiled 10\n", string(out))
}

func TestBinaryCompiler_NonZeroExitCarriesStderr(t *testing.T) {
	upstream := t.TempDir()
	writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")
	bin := fakeOpal(t, `echo "syntax error near line 3" >&2; exit 3`)

	_, err := NewBinaryCompiler(bin).Compile(context.Background(), Request{
		Module: "asciidoctor/converter/manpage",
		Roots:  NewSourceRoots("", upstream, ""),
	})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryCompile))
	require.Contains(t, err.Error(), "syntax error near line 3")
}

func TestBinaryCompiler_LogsCarryBuildContext(t *testing.T) {
	upstream := t.TempDir()
	writeRuby(t, upstream, "asciidoctor/converter/manpage", "# upstream")
	bin := fakeOpal(t, `echo "warning: dynamic require" >&2; echo ok`)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := observability.WithBuildID(context.Background(), "b-42")
	ctx = observability.WithStage(ctx, "compile")
	_, err := NewBinaryCompiler(bin).Compile(ctx, Request{
		Module: "asciidoctor/converter/manpage",
		Roots:  NewSourceRoots("", upstream, ""),
	})
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.Contains(t, line, "build.id=b-42")
		require.Contains(t, line, "stage=compile")
	}
	require.Contains(t, buf.String(), "compiler stderr")
}

func TestBinaryCompiler_MissingBinary(t *testing.T) {
	_, err := NewBinaryCompiler(filepath.Join(t.TempDir(), "no-such-opal")).Compile(context.Background(), Request{
		Module: "asciidoctor/converter/manpage",
	})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryCompile))
}

func TestFunc(t *testing.T) {
	var c Compiler = Func(func(_ context.Context, req Request) ([]byte, error) {
		return []byte(req.Module), nil
	})
	out, err := c.Compile(context.Background(), Request{Module: "m"})
	require.NoError(t, err)
	require.Equal(t, "m", string(out))
}
