package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

const maxEventBytes = 1 << 20

// Subscriber acknowledgement statuses understood by Dapr.
const (
	statusSuccess = "SUCCESS"
	statusDrop    = "DROP"
	statusRetry   = "RETRY"
)

// Scanner runs one reminder scan.
type Scanner interface {
	ScanAndNotify(ctx context.Context, now time.Time) (service.ScanResult, error)
}

// CompletionHandler consumes one task event body.
type CompletionHandler interface {
	Handle(ctx context.Context, body []byte) (service.Outcome, error)
}

// NotificationFeed consumes reminder events and serves the recent feed.
type NotificationFeed interface {
	Handle(ctx context.Context, body []byte) (model.Notification, error)
	Recent(userID string, limit int) []model.Notification
}

// Subscriptions names the pub/sub component and topics advertised to Dapr.
type Subscriptions struct {
	PubsubName         string
	NotificationsTopic string
	TaskEventsTopic    string
}

// Handler serves the HTTP surface of the service.
type Handler struct {
	scanner       Scanner
	completion    CompletionHandler
	notifications NotificationFeed
	subs          Subscriptions
	now           func() time.Time
	logger        *slog.Logger
}

func NewHandler(scanner Scanner, completion CompletionHandler, notifications NotificationFeed, subs Subscriptions, logger *slog.Logger) *Handler {
	return &Handler{
		scanner:       scanner,
		completion:    completion,
		notifications: notifications,
		subs:          subs,
		now:           time.Now,
		logger:        logger.With("component", "api"),
	}
}

type scanResponse struct {
	Status        string `json:"status"`
	RemindersSent int    `json:"reminders_sent"`
	Scanned       int    `json:"scanned"`
	Due           int    `json:"due"`
	Malformed     int    `json:"malformed"`
	Failed        int    `json:"failed"`
}

// CheckReminders runs a scan on demand, e.g. from an external cron trigger.
func (h *Handler) CheckReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.ScanAndNotify(r.Context(), h.now())
	if err != nil {
		RespondWithError(w, r, h.logger, http.StatusInternalServerError, "reminder scan failed", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, scanResponse{
		Status:        "ok",
		RemindersSent: result.Notified,
		Scanned:       result.Scanned,
		Due:           result.Due,
		Malformed:     result.Malformed,
		Failed:        result.Failed,
	})
}

type subscriberResponse struct {
	Status  string           `json:"status"`
	Outcome *service.Outcome `json:"outcome,omitempty"`
}

// TaskCompleted consumes a task event delivered by the broker. Undecodable
// events are dropped; store failures ask for redelivery.
func (h *Handler) TaskCompleted(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.logger.Warn("dropping unreadable task event", "error", err)
		RespondWithJSON(w, http.StatusOK, subscriberResponse{Status: statusDrop})
		return
	}

	outcome, err := h.completion.Handle(r.Context(), body)
	switch {
	case errors.Is(err, service.ErrInvalidEvent):
		h.logger.Warn("dropping undecodable task event", "error", err)
		RespondWithJSON(w, http.StatusOK, subscriberResponse{Status: statusDrop})
	case err != nil:
		h.logger.Error("task event failed, requesting redelivery", "error", err)
		RespondWithJSON(w, http.StatusInternalServerError, subscriberResponse{Status: statusRetry})
	default:
		RespondWithJSON(w, http.StatusOK, subscriberResponse{Status: statusSuccess, Outcome: &outcome})
	}
}

// ReceiveNotification consumes a reminder event into the feed.
func (h *Handler) ReceiveNotification(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err == nil {
		_, err = h.notifications.Handle(r.Context(), body)
	}
	if err != nil {
		h.logger.Warn("dropping undecodable notification", "error", err)
		RespondWithJSON(w, http.StatusOK, subscriberResponse{Status: statusDrop})
		return
	}
	RespondWithJSON(w, http.StatusOK, subscriberResponse{Status: statusSuccess})
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Count         int                  `json:"count"`
}

// ListNotifications returns the recent feed, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondWithError(w, r, h.logger, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	items := h.notifications.Recent(r.URL.Query().Get("user_id"), limit)
	if items == nil {
		items = []model.Notification{}
	}
	RespondWithJSON(w, http.StatusOK, notificationsResponse{Notifications: items, Count: len(items)})
}

type daprSubscription struct {
	PubsubName string `json:"pubsubname"`
	Topic      string `json:"topic"`
	Route      string `json:"route"`
}

// DaprSubscribe lists the topic subscriptions served by this process.
func (h *Handler) DaprSubscribe(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, []daprSubscription{
		{PubsubName: h.subs.PubsubName, Topic: h.subs.TaskEventsTopic, Route: taskCompletedPath},
		{PubsubName: h.subs.PubsubName, Topic: h.subs.NotificationsTopic, Route: notificationsPath},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
}
