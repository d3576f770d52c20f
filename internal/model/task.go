package model

import "time"

// Task represents a single to-do item owned by a user.
type Task struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"index;not null" json:"user_id"`
	Description       string    `gorm:"not null" json:"description"`
	DueDate           *string   `gorm:"index" json:"due_date,omitempty"` // ISO-8601 text as written by the task app
	Completed         bool      `gorm:"default:false;index" json:"completed"`
	NotificationSent  bool      `gorm:"default:false" json:"notification_sent"`
	IsRecurring       bool      `gorm:"default:false" json:"is_recurring"`
	RecurrencePattern *string   `json:"recurrence_pattern,omitempty"` // e.g. "daily", "Weekly on Monday"
	Category          *string   `json:"category,omitempty"`
	Priority          *string   `json:"priority,omitempty"`
	Tags              []string  `gorm:"serializer:json" json:"tags,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Successor builds the next occurrence of a recurring task due at nextDue.
// Identity, timestamps and state flags are left for the store to assign.
func (t Task) Successor(nextDue string) Task {
	next := Task{
		UserID:            t.UserID,
		Description:       t.Description,
		DueDate:           &nextDue,
		IsRecurring:       t.IsRecurring,
		RecurrencePattern: cloneString(t.RecurrencePattern),
		Category:          cloneString(t.Category),
		Priority:          cloneString(t.Priority),
	}
	if len(t.Tags) > 0 {
		next.Tags = append([]string(nil), t.Tags...)
	}
	return next
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
