package service

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/pubsub"
)

// TaskCompleter is the task access needed to complete a task.
type TaskCompleter interface {
	GetByID(ctx context.Context, id uint) (*model.Task, error)
	Save(ctx context.Context, task *model.Task) error
}

// TaskService performs the task app's side of completion: it closes the
// task and announces it on the task events topic.
type TaskService struct {
	store          TaskCompleter
	publisher      pubsub.Publisher
	topic          string
	publishTimeout time.Duration
}

func NewTaskService(store TaskCompleter, publisher pubsub.Publisher, topic string, publishTimeout time.Duration) *TaskService {
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &TaskService{store: store, publisher: publisher, topic: topic, publishTimeout: publishTimeout}
}

// CompleteTask marks the task done and publishes a "completed" event. An
// already completed task is announced again, which consumers must tolerate.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !task.Completed {
		task.Completed = true
		if err := s.store.Save(ctx, task); err != nil {
			return nil, err
		}
	}

	event := model.TaskEvent{
		EventType: model.EventTypeCompleted,
		TaskID:    model.TaskRef{ID: task.ID, Valid: true},
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, s.topic, event); err != nil {
		return task, fmt.Errorf("announce completion of task %d: %w", task.ID, err)
	}
	return task, nil
}
