package eventstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testBuildID = "build-1"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendAll(t *testing.T, store Store, events ...*Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, store.Append(t.Context(), e))
	}
}

func mustEvent(t *testing.T) func(*Event, error) *Event {
	return func(e *Event, err error) *Event {
		t.Helper()
		require.NoError(t, err)
		return e
	}
}

func TestAppendAndGetByBuildID(t *testing.T) {
	store := newStore(t)
	must := mustEvent(t)

	started := must(NewBuildStarted(testBuildID, BuildStartedPayload{Version: "2.0.7", Module: "manpage", Strategy: "archive"}))
	appendAll(t, store,
		started,
		must(NewStageCompleted(testBuildID, "clean", 3*time.Millisecond)),
		must(NewStageCompleted("other", "clean", time.Millisecond)),
	)
	require.NotZero(t, started.ID)

	events, err := store.GetByBuildID(t.Context(), testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, TypeBuildStarted, events[0].Type)
	require.Equal(t, "clean", events[1].Stage)

	var p BuildStartedPayload
	require.NoError(t, events[0].Decode(&p))
	require.Equal(t, "2.0.7", p.Version)
}

func TestSummarize(t *testing.T) {
	must := mustEvent(t)
	events := []*Event{
		must(NewBuildStarted(testBuildID, BuildStartedPayload{Version: "2.0.7", Module: "manpage"})),
		must(NewStageCompleted(testBuildID, "clean", 2*time.Millisecond)),
		must(NewStageFailed(testBuildID, "fetch", 40*time.Millisecond, "network", errors.New("HTTP 404"))),
		must(NewBuildFinished(testBuildID, BuildFinishedPayload{Status: "failed", DurationMS: 45})),
	}

	s, err := Summarize(events)
	require.NoError(t, err)
	require.Equal(t, "failed", s.Status)
	require.Equal(t, "manpage", s.Module)
	require.Equal(t, 45*time.Millisecond, s.Duration)
	require.Len(t, s.Stages, 2)
	require.True(t, s.Stages[1].Failed)
	require.Equal(t, "HTTP 404", s.Stages[1].Error)

	_, err = Summarize(nil)
	require.Error(t, err)
}

func TestSummarize_Running(t *testing.T) {
	s, err := Summarize([]*Event{mustEvent(t)(NewBuildStarted(testBuildID, BuildStartedPayload{}))})
	require.NoError(t, err)
	require.Equal(t, "running", s.Status)
}

func TestRecent_NewestFirst(t *testing.T) {
	store := newStore(t)
	must := mustEvent(t)
	for _, id := range []string{"b1", "b2", "b3"} {
		appendAll(t, store,
			must(NewBuildStarted(id, BuildStartedPayload{Module: "manpage"})),
			must(NewBuildFinished(id, BuildFinishedPayload{Status: "success"})),
		)
	}

	summaries, err := Recent(t.Context(), store, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "b3", summaries[0].BuildID)
	require.Equal(t, "b2", summaries[1].BuildID)
	require.Equal(t, "success", summaries[0].Status)
}

func TestNewSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	appendAll(t, store, mustEvent(t)(NewBuildStarted(testBuildID, BuildStartedPayload{})))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByBuildID(t.Context(), testBuildID)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
