package eventstore

import (
	"context"
	"fmt"
	"time"
)

// StageSummary is the outcome of one stage.
type StageSummary struct {
	Name     string
	Duration time.Duration
	Failed   bool
	Error    string
}

// BuildSummary is a read model folded from the events of one build.
type BuildSummary struct {
	BuildID   string
	Version   string
	Module    string
	Status    string
	StartedAt time.Time
	Duration  time.Duration
	Artifact  string
	SHA256    string
	Stages    []StageSummary
}

// Summarize folds events (one build, insertion order) into a summary. A build
// without a build.finished event reports status "running".
func Summarize(events []*Event) (*BuildSummary, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events")
	}
	s := &BuildSummary{BuildID: events[0].BuildID, Status: "running", StartedAt: events[0].Timestamp}
	for _, e := range events {
		switch e.Type {
		case TypeBuildStarted:
			var p BuildStartedPayload
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			s.Version, s.Module = p.Version, p.Module
		case TypeStageCompleted, TypeStageFailed:
			var p StagePayload
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			s.Stages = append(s.Stages, StageSummary{
				Name:     e.Stage,
				Duration: time.Duration(p.DurationMS) * time.Millisecond,
				Failed:   e.Type == TypeStageFailed,
				Error:    p.Error,
			})
		case TypeBuildFinished:
			var p BuildFinishedPayload
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			s.Status = p.Status
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			s.Artifact, s.SHA256 = p.Artifact, p.SHA256
		}
	}
	return s, nil
}

// Recent returns summaries of the newest builds in store.
func Recent(ctx context.Context, store Store, limit int) ([]*BuildSummary, error) {
	ids, err := store.RecentBuildIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		events, err := store.GetByBuildID(ctx, id)
		if err != nil {
			return nil, err
		}
		s, err := Summarize(events)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}
