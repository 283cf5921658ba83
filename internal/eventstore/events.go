package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildStartedPayload describes the inputs of a build.
type BuildStartedPayload struct {
	Version  string `json:"version"`
	Module   string `json:"module"`
	Strategy string `json:"strategy"`
}

// StagePayload records how a stage ended.
type StagePayload struct {
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Category   string `json:"category,omitempty"`
}

// BuildFinishedPayload records the outcome of a build.
type BuildFinishedPayload struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Artifact   string `json:"artifact,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
}

func newEvent(buildID string, typ EventType, stage string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &Event{
		BuildID:   buildID,
		Type:      typ,
		Stage:     stage,
		Timestamp: time.Now(),
		Payload:   data,
	}, nil
}

// NewBuildStarted creates a build.started event.
func NewBuildStarted(buildID string, p BuildStartedPayload) (*Event, error) {
	return newEvent(buildID, TypeBuildStarted, "", p)
}

// NewStageCompleted creates a stage.completed event.
func NewStageCompleted(buildID, stage string, d time.Duration) (*Event, error) {
	return newEvent(buildID, TypeStageCompleted, stage, StagePayload{DurationMS: d.Milliseconds()})
}

// NewStageFailed creates a stage.failed event.
func NewStageFailed(buildID, stage string, d time.Duration, category string, cause error) (*Event, error) {
	p := StagePayload{DurationMS: d.Milliseconds(), Category: category}
	if cause != nil {
		p.Error = cause.Error()
	}
	return newEvent(buildID, TypeStageFailed, stage, p)
}

// NewBuildFinished creates a build.finished event.
func NewBuildFinished(buildID string, p BuildFinishedPayload) (*Event, error) {
	return newEvent(buildID, TypeBuildFinished, "", p)
}
