package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/feed"
	"taskflow/internal/model"
	"taskflow/internal/pubsub"
)

const (
	defaultNotificationTitle = "Task Reminder"
	DefaultFeedLimit         = 20
)

// Sender delivers a notification to an external channel.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// NotificationService records delivered reminder events in the recent feed
// and fans them out to the configured senders.
type NotificationService struct {
	feed    *feed.Ring[model.Notification]
	senders []Sender
	now     func() time.Time
	logger  *slog.Logger
}

func NewNotificationService(ring *feed.Ring[model.Notification], senders []Sender, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		feed:    ring,
		senders: senders,
		now:     time.Now,
		logger:  logger.With("component", "notification_consumer"),
	}
}

type notificationMessage struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	UserID string         `json:"user_id"`
	TaskID *model.TaskRef `json:"task_id"`
}

// Handle records one notification message. A failing sender is logged; the
// message still counts as consumed once it is in the feed.
func (s *NotificationService) Handle(ctx context.Context, body []byte) (model.Notification, error) {
	payload, err := pubsub.Unwrap(body)
	if err != nil {
		return model.Notification{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	var msg notificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return model.Notification{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      msg.Type,
		Title:     msg.Title,
		Body:      msg.Body,
		UserID:    msg.UserID,
		TaskID:    msg.TaskID,
		CreatedAt: s.now(),
	}
	if n.Type == "" {
		n.Type = model.EventTypeReminder
	}
	if n.Title == "" {
		n.Title = defaultNotificationTitle
	}
	s.feed.Push(n)

	s.logger.Info("received notification",
		"notification_id", n.ID,
		"type", n.Type,
		"user_id", n.UserID,
		"title", n.Title)

	for _, sender := range s.senders {
		if err := sender.Send(ctx, n); err != nil {
			s.logger.Error("failed to deliver notification",
				"notification_id", n.ID,
				"user_id", n.UserID,
				"error", err)
		}
	}
	return n, nil
}

// HandleMessage adapts Handle to a pubsub.Handler.
func (s *NotificationService) HandleMessage(ctx context.Context, body []byte) error {
	if _, err := s.Handle(ctx, body); err != nil {
		s.logger.Warn("dropping undecodable notification", "error", err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first, optionally only
// those for userID.
func (s *NotificationService) Recent(userID string, limit int) []model.Notification {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	var keep func(model.Notification) bool
	if userID != "" {
		keep = func(n model.Notification) bool { return n.UserID == userID }
	}
	return s.feed.Recent(limit, keep)
}
