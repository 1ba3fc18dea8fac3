package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/coregate/janus-gateway/internal/logger"
)

// Record is a single observability event, independent of the JSON
// envelope delivered to browsers over long-poll — this is a secondary
// sink for operators, not part of the control protocol.
type Record struct {
	EventID   string
	Kind      string // e.g. "session.created", "handle.attached", "plugin.message"
	SessionID uint64
	HandleID  uint64
	Detail    string
}

// NewRecord builds a Record with a fresh correlation ID, following the
// event-builder idiom of tagging every observability event with its
// own UUID rather than relying on log-line ordering to reconstruct it.
func NewRecord(kind string, sessionID, handleID uint64, detail string) Record {
	return Record{
		EventID:   uuid.New().String(),
		Kind:      kind,
		SessionID: sessionID,
		HandleID:  handleID,
		Detail:    detail,
	}
}

// Publisher is the interface for publishing gateway lifecycle events.
// Publish/PublishAsync/Flush/Close is deliberately small so a future
// transport-backed implementation slots in without touching call sites.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	PublishAsync(rec Record)
	Flush(ctx context.Context) error
	Close() error
}

// NoopPublisher discards everything. Used when no observability sink is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(ctx context.Context, rec Record) error { return nil }
func (p *NoopPublisher) PublishAsync(rec Record)                      {}
func (p *NoopPublisher) Flush(ctx context.Context) error               { return nil }
func (p *NoopPublisher) Close() error                                  { return nil }

// LogPublisher writes events through the gateway's structured logger.
// This is the default non-noop sink: no external transport is wired up,
// so logging is the honest "production" option available today.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) Publish(ctx context.Context, rec Record) error {
	logger.Info("event", "id", rec.EventID, "kind", rec.Kind, "session", rec.SessionID, "handle", rec.HandleID, "detail", rec.Detail)
	return nil
}

func (p *LogPublisher) PublishAsync(rec Record) {
	go func() { _ = p.Publish(context.Background(), rec) }()
}

func (p *LogPublisher) Flush(ctx context.Context) error { return nil }
func (p *LogPublisher) Close() error                    { return nil }
