package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/store"
)

// testToday is the fixed "today" every service test runs on.
const testToday = "2024-03-10"

type testEnv struct {
	tasks    *TaskService
	habits   *HabitService
	sessions *SessionService
	stories  *StoryService
}

func fixedClock() Clock {
	return func() time.Time { return time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC) }
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := fixedClock()
	return &testEnv{
		tasks:    NewTaskService(store.NewTaskStore(db), clock, logger),
		habits:   NewHabitService(store.NewHabitStore(db), clock, logger),
		sessions: NewSessionService(store.NewMeditationStore(db), store.NewStudyStore(db), logger),
		stories:  NewStoryService(store.NewStoryStore(db)),
	}
}
