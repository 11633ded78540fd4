package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink writes each event as one structured warn line.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *ZerologSink) Write(_ context.Context, event *Event) error {
	entry := s.log.Warn().
		Str("event_id", event.ID.String()).
		Str("gate", event.Gate).
		Str("status", string(event.Status)).
		Int("http_status", event.HTTPStatus).
		Str("code", event.Code).
		Str("actor_type", string(event.ActorType)).
		Str("method", event.Method).
		Str("path", event.Path).
		Str("ip", event.IPAddress)

	if event.ActorID != "" {
		entry = entry.Str("actor_id", event.ActorID).Str("role", event.Role)
	}
	if event.Origin != "" {
		entry = entry.Str("origin", event.Origin)
	}
	if event.RequestID != "" {
		entry = entry.Str("request_id", event.RequestID)
	}
	if len(event.Metadata) > 0 {
		entry = entry.Fields(event.Metadata)
	}

	entry.Msg(event.Message)
	return nil
}
