package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/testutil"
)

func newRepo(t *testing.T) *repository.TaskRepository {
	t.Helper()
	return repository.NewTaskRepository(testutil.NewTestDB(t))
}

func TestTaskRepository_CreateAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	task := &model.Task{
		UserID:            "user-1",
		Description:       "water plants",
		DueDate:           testutil.StrPtr("2024-01-01T10:00:00"),
		IsRecurring:       true,
		RecurrencePattern: testutil.StrPtr("daily"),
		Tags:              []string{"home", "garden"},
	}
	require.NoError(t, repo.Create(ctx, task))
	require.NotZero(t, task.ID)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "water plants", got.Description)
	assert.Equal(t, []string{"home", "garden"}, got.Tags)
	assert.False(t, got.Completed)
	assert.False(t, got.NotificationSent)

	_, err = repo.GetByID(ctx, task.ID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskRepository_GetDueUnnotified(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	candidate := &model.Task{UserID: "u", Description: "candidate", DueDate: testutil.StrPtr("2024-01-01T10:00:00")}
	future := &model.Task{UserID: "u", Description: "future", DueDate: testutil.StrPtr("2999-01-01T10:00:00")}
	noDue := &model.Task{UserID: "u", Description: "no due"}
	done := &model.Task{UserID: "u", Description: "done", DueDate: testutil.StrPtr("2024-01-01T10:00:00"), Completed: true}
	sent := &model.Task{UserID: "u", Description: "sent", DueDate: testutil.StrPtr("2024-01-01T10:00:00"), NotificationSent: true}
	for _, task := range []*model.Task{candidate, future, noDue, done, sent} {
		require.NoError(t, repo.Create(ctx, task))
	}

	tasks, err := repo.GetDueUnnotified(ctx)
	require.NoError(t, err)

	var names []string
	for _, task := range tasks {
		names = append(names, task.Description)
	}
	// No time filtering happens at this layer.
	assert.ElementsMatch(t, []string{"candidate", "future"}, names)
}

func TestTaskRepository_MarkNotified(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	task := &model.Task{UserID: "u", Description: "call mom", DueDate: testutil.StrPtr("2024-01-01T10:00:00")}
	require.NoError(t, repo.Create(ctx, task))

	require.NoError(t, repo.MarkNotified(ctx, task.ID))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)

	// Second transition is refused.
	assert.ErrorIs(t, repo.MarkNotified(ctx, task.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.MarkNotified(ctx, 9999), repository.ErrNotFound)
}

func TestTaskRepository_MarkNotifiedKeepsCompletion(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	task := &model.Task{UserID: "u", Description: "pay rent", DueDate: testutil.StrPtr("2024-01-01T10:00:00")}
	require.NoError(t, repo.Create(ctx, task))

	// Completion lands between the scan read and the notification write.
	stale := *task
	task.Completed = true
	require.NoError(t, repo.Save(ctx, task))

	require.NoError(t, repo.MarkNotified(ctx, stale.ID))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.True(t, got.NotificationSent)
}

func TestTaskRepository_FindDuplicateCandidate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	open := &model.Task{UserID: "u", Description: "standup", DueDate: testutil.StrPtr("2024-01-02T10:00:00")}
	require.NoError(t, repo.Create(ctx, open))

	got, err := repo.FindDuplicateCandidate(ctx, "standup", "u", "2024-01-02T10:00:00")
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)

	_, err = repo.FindDuplicateCandidate(ctx, "standup", "other-user", "2024-01-02T10:00:00")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindDuplicateCandidate(ctx, "standup", "u", "2024-01-03T10:00:00")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	open.Completed = true
	require.NoError(t, repo.Save(ctx, open))
	_, err = repo.FindDuplicateCandidate(ctx, "standup", "u", "2024-01-02T10:00:00")
	assert.ErrorIs(t, err, repository.ErrNotFound, "completed tasks are not duplicate candidates")
}

func TestTaskRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first := &model.Task{UserID: "u", Description: "gym", DueDate: testutil.StrPtr("2024-01-08T07:00:00")}
	require.NoError(t, repo.CreateIfAbsent(ctx, first))
	require.NotZero(t, first.ID)

	second := &model.Task{UserID: "u", Description: "gym", DueDate: testutil.StrPtr("2024-01-08T07:00:00")}
	err := repo.CreateIfAbsent(ctx, second)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Zero(t, second.ID)

	// Plain Create is rejected by the unique index as well.
	third := &model.Task{UserID: "u", Description: "gym", DueDate: testutil.StrPtr("2024-01-08T07:00:00")}
	assert.ErrorIs(t, repo.Create(ctx, third), repository.ErrDuplicate)

	err = repo.CreateIfAbsent(ctx, &model.Task{UserID: "u", Description: "gym"})
	assert.Error(t, err)
}

func TestTaskRepository_CreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dups    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := &model.Task{UserID: "u", Description: "read", DueDate: testutil.StrPtr("2024-02-01T21:00:00")}
			err := repo.CreateIfAbsent(ctx, task)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, repository.ErrDuplicate):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, dups)
}
