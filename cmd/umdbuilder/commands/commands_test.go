package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
	"git.home.luguber.info/inful/umdbuilder/internal/eventstore"
)

// writeConfig writes a configuration whose paths all live under dir.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	body := "paths:\n" +
		"  workspace: " + filepath.Join(dir, "build") + "\n" +
		"  overrides: " + filepath.Join(dir, "lib") + "\n" +
		"output:\n" +
		"  directory: " + filepath.Join(dir, "dist") + "\n" + extra
	p := filepath.Join(dir, "umdbuilder.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func clearGate(t *testing.T) {
	t.Setenv("SKIP_BUILD", "")
	t.Setenv("DRY_RUN", "")
}

func TestParser_DefaultCommandIsBuild(t *testing.T) {
	cli := &CLI{}
	parser, err := NewParser(cli)
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"--env-dir", t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "build", kctx.Command())
	require.Equal(t, "umdbuilder.yaml", cli.Config)
}

func TestParser_BuildFlags(t *testing.T) {
	cli := &CLI{}
	parser, err := NewParser(cli)
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--env-dir", t.TempDir(), "build", "--dry-run", "--metrics-file", "m.prom"})
	require.NoError(t, err)
	require.True(t, cli.Build.DryRun)
	require.Equal(t, "m.prom", cli.Build.MetricsFile)
}

func TestBuildCmd_SkipFlag(t *testing.T) {
	clearGate(t)
	dir := t.TempDir()
	root := &CLI{Config: writeConfig(t, dir, "")}
	var out bytes.Buffer

	cmd := &BuildCmd{Skip: true, out: &out}
	require.NoError(t, cmd.Run(&Global{}, root))
	require.Regexp(t, regexp.MustCompile(`^Done in \d+s\n$`), out.String())
	require.NoDirExists(t, filepath.Join(dir, "build"))
	require.NoDirExists(t, filepath.Join(dir, "dist"))
}

func TestBuildCmd_DryRunFromEnvironment(t *testing.T) {
	clearGate(t)
	t.Setenv("DRY_RUN", "true")
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")
	root := &CLI{Config: writeConfig(t, dir, "history:\n  database: "+filepath.Join(dir, "history.db")+"\n")}
	var out bytes.Buffer

	cmd := &BuildCmd{MetricsFile: metricsFile, out: &out}
	require.NoError(t, cmd.Run(&Global{}, root))
	require.Contains(t, out.String(), "Done in")
	require.NoDirExists(t, filepath.Join(dir, "build"))
	require.NoFileExists(t, filepath.Join(dir, "history.db"))
	require.NoFileExists(t, metricsFile)
}

func TestBuildCmd_InvalidConfig(t *testing.T) {
	clearGate(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "umdbuilder.yaml")
	require.NoError(t, os.WriteFile(p, []byte("source:\n  strategy: ftp\n"), 0o600))

	err := (&BuildCmd{Skip: true}).Run(&Global{}, &CLI{Config: p})
	require.Error(t, err)
	code := perrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err)
	require.Contains(t, []int{2, 7}, code)
}

func TestInitCmd(t *testing.T) {
	p := filepath.Join(t.TempDir(), "umdbuilder.yaml")
	root := &CLI{Config: p}

	require.NoError(t, (&InitCmd{}).Run(&Global{}, root))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(data), "2.0.7")

	err = (&InitCmd{}).Run(&Global{}, root)
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryConfig))

	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, root))
}

func TestHistoryCmd(t *testing.T) {
	clearGate(t)
	dir := t.TempDir()

	err := (&HistoryCmd{Limit: 5}).Run(&Global{}, &CLI{Config: writeConfig(t, dir, "")})
	require.True(t, perrors.IsCategory(err, perrors.CategoryValidation))

	db := filepath.Join(dir, "history.db")
	store, err := eventstore.NewSQLiteStore(db)
	require.NoError(t, err)
	for _, mk := range []func() (*eventstore.Event, error){
		func() (*eventstore.Event, error) {
			return eventstore.NewBuildStarted("build-42", eventstore.BuildStartedPayload{Version: "2.0.7"})
		},
		func() (*eventstore.Event, error) {
			return eventstore.NewBuildFinished("build-42", eventstore.BuildFinishedPayload{Status: "success", SHA256: "0123456789abcdef0123"})
		},
	} {
		ev, err := mk()
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), ev))
	}
	require.NoError(t, store.Close())

	var out bytes.Buffer
	cmd := &HistoryCmd{Limit: 5, out: &out}
	require.NoError(t, cmd.Run(&Global{}, &CLI{Config: writeConfig(t, dir, "history:\n  database: "+db+"\n")}))
	require.Contains(t, out.String(), "build-42")
	require.Contains(t, out.String(), "success")
	require.Contains(t, out.String(), "0123456789ab")
}
