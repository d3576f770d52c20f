package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventTypeReminder  = "reminder"
	EventTypeCompleted = "completed"
)

// ReminderEvent is published once per due task.
type ReminderEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	TaskID uint   `json:"task_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// NewReminderEvent builds the reminder payload for a due task.
func NewReminderEvent(task Task) ReminderEvent {
	due := ""
	if task.DueDate != nil {
		due = *task.DueDate
	}
	return ReminderEvent{
		Type:   EventTypeReminder,
		UserID: task.UserID,
		TaskID: task.ID,
		Title:  "TaskFlow: " + task.Description,
		Body:   fmt.Sprintf("This task is due at %s!", due),
	}
}

// TaskEvent is a task lifecycle event on the task events topic. Only
// EventType "completed" is acted upon.
type TaskEvent struct {
	EventType string  `json:"event_type"`
	TaskID    TaskRef `json:"task_id"`
}

// TaskRef accepts a task id encoded either as a JSON number or a string.
type TaskRef struct {
	ID    uint
	Valid bool
}

func (r *TaskRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = TaskRef{}
		return nil
	}
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("task_id %s: %w", string(b), err)
	}
	*r = TaskRef{ID: uint(id), Valid: true}
	return nil
}

func (r TaskRef) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatUint(uint64(r.ID), 10)), nil
}

// Notification is an entry in the recent-notifications feed.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UserID    string    `json:"user_id,omitempty"`
	TaskID    *TaskRef  `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}
