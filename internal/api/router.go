package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	healthPath        = "/health"
	taskCompletedPath = "/api/v1/events/task-completed"
	notificationsPath = "/api/v1/events/notifications"
)

// NewRouter wires the handler's routes and middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get(healthPath, h.Health)
	r.Get("/dapr/subscribe", h.DaprSubscribe)

	// Dapr cron input binding.
	r.Post("/reminder-cron", h.CheckReminders)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cron/check-reminders", h.CheckReminders)
		r.Post("/events/task-completed", h.TaskCompleted)
		r.Post("/events/notifications", h.ReceiveNotification)
		r.Get("/events/notifications", h.ListNotifications)
	})

	return r
}
