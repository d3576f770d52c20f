package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// OutcomeKind names how a task event was resolved.
type OutcomeKind string

const (
	OutcomeIgnored             OutcomeKind = "ignored"
	OutcomeNotFound            OutcomeKind = "not_found"
	OutcomeNotRecurring        OutcomeKind = "not_recurring"
	OutcomeUnknownPattern      OutcomeKind = "unknown_pattern"
	OutcomeDuplicateSuppressed OutcomeKind = "duplicate_suppressed"
	OutcomeCreated             OutcomeKind = "created"
)

// Outcome is the result of handling one completion signal.
type Outcome struct {
	Kind      OutcomeKind `json:"outcome"`
	TaskID    uint        `json:"task_id,omitempty"`
	NewTaskID uint        `json:"new_task_id,omitempty"`
	NextDue   string      `json:"next_due,omitempty"`
}

// RecurrenceStore is the task access the recurrence generator needs.
type RecurrenceStore interface {
	GetByID(ctx context.Context, id uint) (*model.Task, error)
	FindDuplicateCandidate(ctx context.Context, description, userID, dueDate string) (*model.Task, error)
	CreateIfAbsent(ctx context.Context, task *model.Task) error
}

// RecurrenceService creates the next occurrence of a completed recurring task.
type RecurrenceService struct {
	store  RecurrenceStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewRecurrenceService(store RecurrenceStore, loc *time.Location, now func() time.Time, logger *slog.Logger) *RecurrenceService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &RecurrenceService{
		store:  store,
		loc:    loc,
		now:    now,
		logger: logger.With("component", "recurrence_generator"),
	}
}

// OnTaskCompleted derives and stores the successor of task id. Redelivery of
// the same completion resolves to OutcomeDuplicateSuppressed. Errors are only
// returned for store failures.
func (s *RecurrenceService) OnTaskCompleted(ctx context.Context, id uint) (Outcome, error) {
	logger := s.logger.With("task_id", id)
	out := Outcome{TaskID: id}

	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("completed task not found")
			out.Kind = OutcomeNotFound
			return out, nil
		}
		return out, fmt.Errorf("load completed task: %w", err)
	}

	if !task.IsRecurring {
		logger.Info("task is not recurring, skipping")
		out.Kind = OutcomeNotRecurring
		return out, nil
	}

	pattern := ""
	if task.RecurrencePattern != nil {
		pattern = *task.RecurrencePattern
	}
	rec := model.ClassifyRecurrence(pattern)
	base, anchorErr := s.baseDue(task)
	next, ok := rec.Next(base.Time)
	if !ok {
		logger.Info("unknown recurrence pattern", "pattern", rec.Raw)
		out.Kind = OutcomeUnknownPattern
		return out, nil
	}
	if anchorErr != nil {
		logger.Warn("recurring task has no usable due date, anchoring to now", "anchor", base.Time, "reason", anchorErr)
	}
	nextDue := base.With(next).Format()
	out.NextDue = nextDue

	if existing, err := s.store.FindDuplicateCandidate(ctx, task.Description, task.UserID, nextDue); err == nil {
		logger.Info("next occurrence already exists, skipping creation", "existing_task_id", existing.ID, "next_due", nextDue)
		out.Kind = OutcomeDuplicateSuppressed
		out.NewTaskID = existing.ID
		return out, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return out, fmt.Errorf("check for existing occurrence: %w", err)
	}

	successor := task.Successor(nextDue)
	if err := s.store.CreateIfAbsent(ctx, &successor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			logger.Info("next occurrence created concurrently, skipping", "next_due", nextDue)
			out.Kind = OutcomeDuplicateSuppressed
			return out, nil
		}
		return out, fmt.Errorf("create next occurrence: %w", err)
	}

	logger.Info("created next recurring task",
		"new_task_id", successor.ID,
		"recurrence", rec.Kind.String(),
		"next_due", nextDue)
	out.Kind = OutcomeCreated
	out.NewTaskID = successor.ID
	return out, nil
}

// baseDue anchors the next occurrence on the task's due date. When the task
// has none, or it cannot be parsed, the current time is returned together
// with the reason.
func (s *RecurrenceService) baseDue(task *model.Task) (model.DueTime, error) {
	now := model.DueTime{Time: s.now().In(s.loc)}
	if task.DueDate == nil {
		return now, errors.New("no due date")
	}
	due, err := model.ParseDueDate(*task.DueDate, s.loc)
	if err != nil {
		return now, err
	}
	return due, nil
}
