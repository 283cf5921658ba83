package pipeline

import "time"

// Status is the outcome of one pipeline invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusDryRun  Status = "dry_run"
	StatusFailed  Status = "failed"
)

// IsSuccess reports whether the process should exit zero.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSkipped || s == StatusDryRun
}

// StageTiming records how long one stage ran.
type StageTiming struct {
	Stage    string
	Duration time.Duration
	Err      error
}

// Result describes a finished (or short-circuited) build.
type Result struct {
	Status    Status
	BuildID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stages []StageTiming
	// FailedStage is set when Status is StatusFailed.
	FailedStage string

	// Artifact fields are set after a successful publish.
	ArtifactPath   string
	ArtifactSHA256 string
	ArtifactBytes  int64

	// Substitutions is the number of template lines replaced.
	Substitutions int
}

func (r *Result) finish(status Status) {
	r.Status = status
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
