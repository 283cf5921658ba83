// Package notify announces published artifacts on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// EventArtifactPublished is the type of the event sent after a successful copy.
const EventArtifactPublished = "artifact.published"

// ArtifactEvent is the JSON body of a notification.
type ArtifactEvent struct {
	Type      string    `json:"type"`
	BuildID   string    `json:"build_id"`
	Version   string    `json:"version"`
	Module    string    `json:"module"`
	Path      string    `json:"path"`
	SHA256    string    `json:"sha256"`
	Bytes     int64     `json:"bytes"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers artifact events.
type Notifier interface {
	ArtifactPublished(ctx context.Context, ev ArtifactEvent) error
	Close() error
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) ArtifactPublished(context.Context, ArtifactEvent) error { return nil }
func (NoopNotifier) Close() error                                         { return nil }

// NATSNotifier publishes events with core NATS.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url. The connection is kept until Close.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("umdbuilder"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Debug("NATS notifier connected", "url", url, "subject", subject)
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// ArtifactPublished publishes ev and waits for the server to acknowledge the
// flush.
func (n *NATSNotifier) ArtifactPublished(ctx context.Context, ev ArtifactEvent) error {
	if ev.Type == "" {
		ev.Type = EventArtifactPublished
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	slog.Debug("Published artifact event", "subject", n.subject, "path", ev.Path, "sha256", ev.SHA256)
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
