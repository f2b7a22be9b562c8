package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/progresspoint/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestTaskCreateDefaults(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, NewTask{Name: "  Write report  "})
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Name)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, testToday, task.Date)
	assert.False(t, task.Completed)
}

func TestTaskCreateValidation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewTask
	}{
		{"missing name", NewTask{Name: "   "}},
		{"bad priority", NewTask{Name: "x", Priority: "Urgent"}},
		{"bad date", NewTask{Name: "x", Date: "03/10/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.Create(ctx, tt.in)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

func TestTaskListDefaultsToLatestDate(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	for _, in := range []NewTask{
		{Name: "old", Date: "2024-03-01"},
		{Name: "low", Date: "2024-03-05", Priority: model.PriorityLow},
		{Name: "high", Date: "2024-03-05", Priority: model.PriorityHigh},
		{Name: "medium", Date: "2024-03-05"},
	} {
		_, err := env.tasks.Create(ctx, in)
		require.NoError(t, err)
	}

	tasks, err := env.tasks.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"high", "medium", "low"}, taskNames(tasks))

	tasks, err = env.tasks.List(ctx, "", model.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, []string{"low"}, taskNames(tasks))

	tasks, err = env.tasks.List(ctx, "2024-03-01", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, taskNames(tasks))

	_, err = env.tasks.List(ctx, "", "Someday")
	assert.True(t, IsValidation(err))
}

func TestTaskListEmpty(t *testing.T) {
	env := setupServices(t)

	tasks, err := env.tasks.List(context.Background(), "", "")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func taskNames(tasks []model.Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}

func TestTaskUpdatePartial(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, NewTask{Name: "Read", Description: "chapter 3", Priority: model.PriorityHigh})
	require.NoError(t, err)

	updated, err := env.tasks.Update(ctx, task.ID, model.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Read", updated.Name)
	assert.Equal(t, "chapter 3", updated.Description)
	assert.Equal(t, model.PriorityHigh, updated.Priority)

	_, err = env.tasks.Update(ctx, task.ID, model.TaskPatch{Name: ptr("")})
	assert.True(t, IsValidation(err))

	_, err = env.tasks.Update(ctx, 9999, model.TaskPatch{Completed: ptr(true)})
	assert.True(t, IsNotFound(err))
}

func TestTaskDeleteAbsentSucceeds(t *testing.T) {
	env := setupServices(t)
	assert.NoError(t, env.tasks.Delete(context.Background(), 424242))
}

func TestTaskReplicate(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	src, err := env.tasks.Create(ctx, NewTask{Name: "Stretch", Description: "10 min", Priority: model.PriorityLow, Date: "2024-02-27"})
	require.NoError(t, err)
	_, err = env.tasks.Update(ctx, src.ID, model.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)

	copies, err := env.tasks.Replicate(ctx, src.ID, "2024-02-28", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, copies, 4)

	wantDates := []string{"2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	for i, c := range copies {
		assert.Equal(t, wantDates[i], c.Date)
		assert.Equal(t, "Stretch", c.Name)
		assert.Equal(t, "10 min", c.Description)
		assert.Equal(t, model.PriorityLow, c.Priority)
		assert.False(t, c.Completed, "copies start incomplete")
		assert.NotEqual(t, src.ID, c.ID)
	}

	single, err := env.tasks.Replicate(ctx, src.ID, "2024-03-05", "")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "2024-03-05", single[0].Date)

	none, err := env.tasks.Replicate(ctx, src.ID, "2024-03-05", "2024-03-04")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.tasks.Replicate(ctx, 9999, "2024-03-05", "")
	assert.True(t, IsNotFound(err))

	_, err = env.tasks.Replicate(ctx, src.ID, "", "")
	assert.True(t, IsValidation(err))
}

func TestTaskStats(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	stats, err := env.tasks.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{}, stats)

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		task, err := env.tasks.Create(ctx, NewTask{Name: name})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	_, err = env.tasks.Update(ctx, ids[0], model.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)

	stats, err = env.tasks.Stats(ctx, testToday)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{Total: 3, Completed: 1, Pending: 2, Percentage: 33}, stats)
}

func TestTaskStreak(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	complete := func(date string) {
		task, err := env.tasks.Create(ctx, NewTask{Name: "t", Date: date})
		require.NoError(t, err)
		_, err = env.tasks.Update(ctx, task.ID, model.TaskPatch{Completed: ptr(true)})
		require.NoError(t, err)
	}

	n, err := env.tasks.Streak(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	complete("2024-03-08")
	complete("2024-03-09")
	n, err = env.tasks.Streak(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no tasks today means no streak")

	complete(testToday)
	n, err = env.tasks.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = env.tasks.Create(ctx, NewTask{Name: "pending", Date: "2024-03-09"})
	require.NoError(t, err)
	n, err = env.tasks.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "an incomplete yesterday breaks the streak")
}
