package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event is one applied lifecycle transition.
type Event struct {
	EventType string
	EntityID  string
	ActorID   string
	Payload   []byte
	CreatedAt time.Time
}

// Recorder stores audit events. Recording is best effort: callers log a
// failure and carry on, the mutation has already been persisted.
type Recorder interface {
	InsertEvent(ctx context.Context, ev Event) error
}

// NewEvent marshals payload into an event stamped now.
func NewEvent(eventType, entityID, actorID string, payload map[string]any) (Event, error) {
	ev := Event{
		EventType: eventType,
		EntityID:  entityID,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}
	if len(payload) == 0 {
		return ev, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ev, err
	}
	ev.Payload = data
	return ev, nil
}

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogRecorder{log: log}
}

func (r *LogRecorder) InsertEvent(_ context.Context, ev Event) error {
	r.log.Info("audit event",
		zap.String("event", ev.EventType),
		zap.String("entity_id", ev.EntityID),
		zap.String("actor_id", ev.ActorID),
		zap.ByteString("payload", ev.Payload),
		zap.Time("at", ev.CreatedAt),
	)
	return nil
}

// Multi fans an event out to several recorders and returns the first error.
type Multi []Recorder

func (m Multi) InsertEvent(ctx context.Context, ev Event) error {
	var first error
	for _, r := range m {
		if err := r.InsertEvent(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discard drops every event.
type Discard struct{}

func (Discard) InsertEvent(context.Context, Event) error { return nil }
