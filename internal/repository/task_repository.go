package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create task: %w", ErrDuplicate)
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts task unless an open task with the same description,
// user and due date exists. The check and the insert share one transaction and
// the open-occurrence unique index rejects a concurrent insert that slips
// between them; both cases return ErrDuplicate.
func (r *TaskRepository) CreateIfAbsent(ctx context.Context, task *model.Task) error {
	if task.DueDate == nil {
		return fmt.Errorf("create task if absent: due date is required")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := openOccurrence(tx, task.Description, task.UserID, *task.DueDate).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check open occurrence: %w", err)
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create task if absent: %w", err)
	}
	return nil
}

// GetDueUnnotified returns open, unnotified tasks that have a due date.
// Time filtering is left to the caller.
func (r *TaskRepository) GetDueUnnotified(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("completed = ? AND notification_sent = ? AND due_date IS NOT NULL", false, false).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list due unnotified tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &task, nil
}

// FindDuplicateCandidate returns an open task matching description, user and
// due date exactly, or ErrNotFound.
func (r *TaskRepository) FindDuplicateCandidate(ctx context.Context, description, userID, dueDate string) (*model.Task, error) {
	var task model.Task
	err := openOccurrence(r.db.WithContext(ctx), description, userID, dueDate).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find duplicate candidate: %w", err)
	}
}

// MarkNotified sets notification_sent for a single task. Only that column is
// written and only while it is still false, so a concurrent completion of the
// same task is never overwritten. Returns ErrNotFound when no row changed.
func (r *TaskRepository) MarkNotified(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Update("notification_sent", true)
	if res.Error != nil {
		return fmt.Errorf("mark task %d notified: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark task %d notified: %w", id, ErrNotFound)
	}
	return nil
}

// Save writes every column of task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func openOccurrence(db *gorm.DB, description, userID, dueDate string) *gorm.DB {
	return db.Model(&model.Task{}).
		Where("description = ? AND user_id = ? AND due_date = ? AND completed = ?",
			description, userID, dueDate, false)
}
