package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("compile", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("compile", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.ObserveDownloadBytes(1024)
	pr.SetArtifactBytes(2048)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	require.True(t, names["umdbuilder_stage_duration_seconds"])
	require.True(t, names["umdbuilder_build_outcomes_total"])
	require.True(t, names["umdbuilder_artifact_bytes"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("fetch", time.Second)
	pr.IncBuildOutcome(BuildOutcomeFailed)
	require.NoError(t, pr.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(prom.NewRegistry())
	pr.IncStageResult("fetch", ResultFatal)
	pr.IncBuildOutcome(BuildOutcomeFailed)

	path := filepath.Join(t.TempDir(), "umdbuilder.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.Contains(text, `umdbuilder_stage_results_total{result="fatal",stage="fetch"} 1`), text)
	require.True(t, strings.Contains(text, `umdbuilder_build_outcomes_total{outcome="failed"} 1`), text)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("clean", time.Millisecond)
	r.IncStageResult("clean", ResultSuccess)
	r.IncBuildOutcome(BuildOutcomeSkipped)
}
