// Package eventstore records the stage events of each build in SQLite so past
// runs can be inspected.
package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a build history event.
type EventType string

const (
	TypeBuildStarted   EventType = "build.started"
	TypeStageCompleted EventType = "stage.completed"
	TypeStageFailed    EventType = "stage.failed"
	TypeBuildFinished  EventType = "build.finished"
)

// Event is one persisted history entry.
type Event struct {
	ID        int64
	BuildID   string
	Type      EventType
	Stage     string
	Timestamp time.Time
	Payload   json.RawMessage
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
