package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"taskflow/internal/model"
	"taskflow/internal/pubsub"
)

// ErrInvalidEvent marks an inbound message that cannot be decoded. The
// transport should drop it rather than redeliver.
var ErrInvalidEvent = errors.New("invalid event")

// CompletionService turns inbound task events into recurrence generation.
type CompletionService struct {
	recurrence *RecurrenceService
	logger     *slog.Logger
}

func NewCompletionService(recurrence *RecurrenceService, logger *slog.Logger) *CompletionService {
	return &CompletionService{
		recurrence: recurrence,
		logger:     logger.With("component", "completion_handler"),
	}
}

// Handle decodes a task event, unwrapping any transport envelope, and runs
// recurrence generation for "completed" events. Other event types resolve to
// OutcomeIgnored.
func (s *CompletionService) Handle(ctx context.Context, body []byte) (Outcome, error) {
	payload, err := pubsub.Unwrap(body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	// The task id is only decoded for completion events; other event types
	// are ignored whatever their payload carries.
	var head struct {
		EventType string          `json:"event_type"`
		TaskID    json.RawMessage `json:"task_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if head.EventType != model.EventTypeCompleted {
		s.logger.Debug("ignoring task event", "event_type", head.EventType)
		return Outcome{Kind: OutcomeIgnored}, nil
	}

	var ref model.TaskRef
	if len(head.TaskID) > 0 {
		if err := json.Unmarshal(head.TaskID, &ref); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}
	if !ref.Valid {
		return Outcome{}, fmt.Errorf("%w: missing task_id", ErrInvalidEvent)
	}

	s.logger.Info("processing completion event", "task_id", ref.ID)
	return s.recurrence.OnTaskCompleted(ctx, ref.ID)
}

// HandleMessage adapts Handle to a pubsub.Handler. Undecodable messages are
// logged and acknowledged; store failures are returned so they are retried.
func (s *CompletionService) HandleMessage(ctx context.Context, body []byte) error {
	_, err := s.Handle(ctx, body)
	if errors.Is(err, ErrInvalidEvent) {
		s.logger.Warn("dropping undecodable task event", "error", err)
		return nil
	}
	return err
}
