package service

import (
	"context"
	"encoding/json"
	"sync"

	"taskflow/internal/model"
)

type publishCall struct {
	Topic   string
	Payload []byte
}

// fakePublisher records every publish and delegates to PublishFn when set.
type fakePublisher struct {
	PublishFn func(ctx context.Context, topic string, payload any) error

	mu    sync.Mutex
	calls []publishCall
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, _ := json.Marshal(payload)
	p.mu.Lock()
	p.calls = append(p.calls, publishCall{Topic: topic, Payload: body})
	p.mu.Unlock()
	if p.PublishFn != nil {
		return p.PublishFn(ctx, topic, payload)
	}
	return nil
}

func (p *fakePublisher) Calls() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

func (p *fakePublisher) Reminders() []model.ReminderEvent {
	var out []model.ReminderEvent
	for _, c := range p.Calls() {
		var ev model.ReminderEvent
		if err := json.Unmarshal(c.Payload, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

// fakeStore lets tests inject failures into individual store calls.
type fakeStore struct {
	GetDueUnnotifiedFn       func(ctx context.Context) ([]model.Task, error)
	GetByIDFn                func(ctx context.Context, id uint) (*model.Task, error)
	MarkNotifiedFn           func(ctx context.Context, id uint) error
	FindDuplicateCandidateFn func(ctx context.Context, description, userID, dueDate string) (*model.Task, error)
	CreateIfAbsentFn         func(ctx context.Context, task *model.Task) error

	mu                sync.Mutex
	markNotifiedCalls []uint
	created           []model.Task
}

func (s *fakeStore) GetDueUnnotified(ctx context.Context) ([]model.Task, error) {
	return s.GetDueUnnotifiedFn(ctx)
}

func (s *fakeStore) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	return s.GetByIDFn(ctx, id)
}

func (s *fakeStore) MarkNotified(ctx context.Context, id uint) error {
	s.mu.Lock()
	s.markNotifiedCalls = append(s.markNotifiedCalls, id)
	s.mu.Unlock()
	if s.MarkNotifiedFn != nil {
		return s.MarkNotifiedFn(ctx, id)
	}
	return nil
}

func (s *fakeStore) FindDuplicateCandidate(ctx context.Context, description, userID, dueDate string) (*model.Task, error) {
	return s.FindDuplicateCandidateFn(ctx, description, userID, dueDate)
}

func (s *fakeStore) CreateIfAbsent(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	s.created = append(s.created, *task)
	s.mu.Unlock()
	if s.CreateIfAbsentFn != nil {
		return s.CreateIfAbsentFn(ctx, task)
	}
	return nil
}

// fakeSender records delivered notifications.
type fakeSender struct {
	err  error
	mu   sync.Mutex
	sent []model.Notification
}

func (s *fakeSender) Send(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}
