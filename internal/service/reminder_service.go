package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/model"
	"taskflow/internal/pubsub"
	"taskflow/internal/repository"
)

// ReminderStore is the task access the reminder scan needs.
type ReminderStore interface {
	GetDueUnnotified(ctx context.Context) ([]model.Task, error)
	GetByID(ctx context.Context, id uint) (*model.Task, error)
	MarkNotified(ctx context.Context, id uint) error
}

// ReminderConfig tunes a ReminderService.
type ReminderConfig struct {
	Topic          string
	PublishTimeout time.Duration
	Concurrency    int
	Location       *time.Location
}

// ScanResult summarises one scan.
type ScanResult struct {
	Scanned   int `json:"scanned"`
	Due       int `json:"due"`
	Notified  int `json:"notified"`
	Malformed int `json:"malformed"`
	Failed    int `json:"failed"`
}

// ReminderService finds due tasks and publishes one reminder per task.
type ReminderService struct {
	store     ReminderStore
	publisher pubsub.Publisher
	cfg       ReminderConfig
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

func NewReminderService(store ReminderStore, publisher pubsub.Publisher, cfg ReminderConfig, logger *slog.Logger) *ReminderService {
	if cfg.Topic == "" {
		cfg.Topic = "notifications"
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ReminderService{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "reminder_scanner"),
		inFlight:  make(map[uint]struct{}),
	}
}

type taskOutcome int

const (
	taskNotDue taskOutcome = iota
	taskMalformed
	taskSkipped
	taskNotified
	taskFailed
)

// ScanAndNotify publishes a reminder for every open, unnotified task due at
// or before now. A task is marked notified only after its publish was
// acknowledged; tasks whose publish fails stay candidates for the next scan.
// Only a failure to list candidates is returned as an error.
func (s *ReminderService) ScanAndNotify(ctx context.Context, now time.Time) (ScanResult, error) {
	tasks, err := s.store.GetDueUnnotified(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("load reminder candidates: %w", err)
	}

	s.logger.Info("scanning for due tasks", "candidates", len(tasks), "now", now)

	var due, notified, malformed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			switch s.processTask(gctx, task, now) {
			case taskMalformed:
				malformed.Add(1)
			case taskNotified:
				due.Add(1)
				notified.Add(1)
			case taskFailed:
				due.Add(1)
				failed.Add(1)
			case taskSkipped:
				due.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := ScanResult{
		Scanned:   len(tasks),
		Due:       int(due.Load()),
		Notified:  int(notified.Load()),
		Malformed: int(malformed.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("scan finished",
		"scanned", result.Scanned,
		"due", result.Due,
		"notified", result.Notified,
		"malformed", result.Malformed,
		"failed", result.Failed)
	return result, nil
}

// processTask is the unit of work for one candidate: publish, then persist
// the notified flag before the task is released.
func (s *ReminderService) processTask(ctx context.Context, task model.Task, now time.Time) taskOutcome {
	logger := s.logger.With("task_id", task.ID)

	if task.DueDate == nil {
		return taskNotDue
	}
	dueAt, err := model.ParseDueDate(*task.DueDate, s.cfg.Location)
	if err != nil {
		logger.Warn("skipping task with unparseable due date", "due_date", *task.DueDate, "error", err)
		return taskMalformed
	}
	if dueAt.After(now) {
		return taskNotDue
	}

	if !s.claim(task.ID) {
		logger.Debug("task already being processed by another scan")
		return taskSkipped
	}
	defer s.release(task.ID)

	// An overlapping scan may have notified it since the candidate list was read.
	current, err := s.store.GetByID(ctx, task.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return taskSkipped
		}
		logger.Error("failed to reload task", "error", err)
		return taskFailed
	}
	if current.NotificationSent || current.Completed {
		return taskSkipped
	}

	logger.Info("task is due", "due_at", dueAt.Time, "now", now)

	event := model.NewReminderEvent(*current)
	pubCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	err = s.publisher.Publish(pubCtx, s.cfg.Topic, event)
	cancel()
	if err != nil {
		logger.Warn("failed to publish reminder, will retry next scan", "topic", s.cfg.Topic, "error", err)
		return taskFailed
	}

	if err := s.store.MarkNotified(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("task was marked notified concurrently", "error", err)
			return taskSkipped
		}
		// Published but not committed: the next scan will remind again.
		logger.Error("reminder published but notified flag not saved", "error", err)
		return taskFailed
	}

	logger.Info("sent reminder", "user_id", current.UserID)
	return taskNotified
}

func (s *ReminderService) claim(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *ReminderService) release(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
