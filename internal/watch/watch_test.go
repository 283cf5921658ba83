package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_NothingToWatch(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "absent"), ""}, 0, nil)
	require.Error(t, err)
}

func TestRelevant(t *testing.T) {
	lib := t.TempDir()
	tplDir := t.TempDir()
	tpl := filepath.Join(tplDir, "template.js")
	require.NoError(t, os.WriteFile(tpl, []byte("x"), 0o600))

	w, err := New([]string{lib, tpl}, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	require.True(t, w.Relevant(filepath.Join(lib, "asciidoctor", "converter", "manpage.rb")))
	require.True(t, w.Relevant(tpl))
	require.False(t, w.Relevant(filepath.Join(tplDir, "other.js")))
	require.False(t, w.Relevant(lib+"-sibling"))
}

func TestRun_RebuildsOnceForBurst(t *testing.T) {
	lib := t.TempDir()
	var builds atomic.Int32
	done := make(chan struct{}, 4)

	w, err := New([]string{lib}, 100*time.Millisecond, func(context.Context) error {
		builds.Add(1)
		done <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- w.Run(ctx) }()

	// give the loop a moment to start receiving events
	time.Sleep(50 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(lib, "f.rb"), []byte{byte('a' + i)}, 0o600))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}
	time.Sleep(300 * time.Millisecond)
	require.EqualValues(t, 1, builds.Load())

	cancel()
	require.NoError(t, <-stopped)
}
