package service

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"acidlab.dev/backend/internal/pkg/observability"
)

const (
	PatternEventCreated = "created"
	PatternEventUpdated = "updated"
	PatternEventDeleted = "deleted"

	PatternEventSubjectPrefix = "PATTERN."
)

type PatternEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	PatternID  uuid.UUID `json:"pattern_id"`
	UserID     uuid.UUID `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PatternEvents announces committed pattern changes on JetStream. A nil
// JetStream context turns it into a no-op.
type PatternEvents struct {
	js nats.JetStreamContext
}

func NewPatternEvents(js nats.JetStreamContext) *PatternEvents {
	return &PatternEvents{js: js}
}

// Publish never fails the caller: the change is already committed, so a
// lost event is logged and counted instead.
func (s *PatternEvents) Publish(ctx context.Context, typ string, owner, id uuid.UUID) {
	if s == nil || s.js == nil {
		return
	}

	evt := PatternEvent{
		ID:         ulid.Make().String(),
		Type:       typ,
		PatternID:  id,
		UserID:     owner,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().
			Str("evt.name", "pattern.event.marshal_failed").
			Err(err).
			Msg("failed to marshal pattern event")
		observability.PatternEventsPublished.WithLabelValues(typ, "error").Inc()
		return
	}

	if _, err := s.js.Publish(PatternEventSubjectPrefix+typ, data, nats.MsgId(evt.ID), nats.Context(ctx)); err != nil {
		log.Warn().
			Str("evt.name", "pattern.event.publish_failed").
			Str("event_id", evt.ID).
			Str("pattern_id", id.String()).
			Err(err).
			Msg("failed to publish pattern event")
		observability.PatternEventsPublished.WithLabelValues(typ, "error").Inc()
		return
	}

	observability.PatternEventsPublished.WithLabelValues(typ, "ok").Inc()
}
