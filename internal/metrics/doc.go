// Package metrics provides build and stage metrics for the UMD build pipeline.
//
// The pipeline receives a Recorder through dependency injection and defaults
// to NoopRecorder, so no nil checks are needed at call sites:
//
//	p := pipeline.New(cfg).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder registers its collectors on the given registry. A
// one-shot CLI has nothing to scrape it, so the registry can be written out in
// the node_exporter textfile format with WriteTextfile after the build.
package metrics
