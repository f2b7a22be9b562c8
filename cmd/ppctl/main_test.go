package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/config"
	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/offline"
	"github.com/dukerupert/progresspoint/internal/progress"
	"github.com/dukerupert/progresspoint/internal/server"
	"github.com/dukerupert/progresspoint/internal/timer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := server.New(db, server.Options{
		Version: "test",
		Clock:   func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) },
	}, discardLogger())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newTestApp(t *testing.T, serverURL string) (*app, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Client{
		Server:  serverURL,
		Cache:   filepath.Join(t.TempDir(), "cache.db"),
		Timeout: 2 * time.Second,
	}
	mirror, err := offline.OpenMirror(ctx, cfg.Cache)
	require.NoError(t, err)
	t.Cleanup(func() { mirror.Close() })

	api := client.New(cfg.Server, cfg.Timeout)
	var out bytes.Buffer
	return &app{
		ctx:    ctx,
		cfg:    cfg,
		logger: discardLogger(),
		api:    api,
		mirror: mirror,
		cache:  offline.NewCache(api, mirror, nil, discardLogger()),
		out:    &out,
		format: "table",
	}, &out
}

func TestParsePriority(t *testing.T) {
	p, err := parsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, p)

	p, err = parsePriority("")
	require.NoError(t, err)
	assert.Equal(t, model.Priority(""), p)

	_, err = parsePriority("urgent")
	assert.Error(t, err)
}

func TestRef(t *testing.T) {
	assert.Equal(t, "42", ref(42, "0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "0f8fad5b", ref(0, "0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "abc", ref(0, "abc"))
}

func TestTimerSummary(t *testing.T) {
	assert.Empty(t, timerSummary(nil))
	assert.Equal(t, "flexible", timerSummary(&timer.Config{Flexible: true}))
	assert.Equal(t, "25m focus, 5m break, 15m long break every 4", timerSummary(&timer.Config{
		Work: 25 * time.Minute, Break: 5 * time.Minute, LongBreak: 15 * time.Minute, Cycles: 4,
	}))
	assert.Equal(t, "1m30s focus", timerSummary(&timer.Config{Work: 90 * time.Second}))
}

func TestSyncSummary(t *testing.T) {
	assert.Contains(t, syncSummary(offline.Report{}), "Nothing to sync")
	msg := syncSummary(offline.Report{Tasks: 2, Checks: 1, Pending: 1})
	assert.Contains(t, msg, "Synced 2 task(s), 0 habit(s), 1 check(s).")
	assert.Contains(t, msg, "1 item(s) were rejected")
}

func TestHabitCalendar(t *testing.T) {
	w, err := progress.NewHabitWindow("2024-03-01", 8)
	require.NoError(t, err)
	today, _ := progress.ParseDate("2024-03-03")

	cal := habitCalendar(w, map[string]bool{"2024-03-01": true, "2024-03-02": true}, today)
	lines := bytes.Split([]byte(cal), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Equal(t, 2, bytes.Count([]byte(cal), []byte("●")))
	assert.Equal(t, 1, bytes.Count([]byte(cal), []byte("○")))
}

func TestTaskAddDraft(t *testing.T) {
	c := &TaskAddCmd{Name: []string{"Write", "report"}, Priority: "low", Date: "2024-03-11"}
	d, err := c.draft()
	require.NoError(t, err)
	req := d.Request()
	assert.Equal(t, "Write report", req.Name)
	assert.Equal(t, model.PriorityLow, req.Priority)
	assert.Equal(t, "2024-03-11", req.Date)

	_, err = (&TaskAddCmd{Priority: "soon"}).draft()
	assert.Error(t, err)
}

func TestTaskCommandsOnline(t *testing.T) {
	ts := newTestServer(t)
	a, out := newTestApp(t, ts.URL)

	require.NoError(t, (&TaskAddCmd{Name: []string{"Write", "report"}, Priority: "high", Date: "2024-03-10"}).Run(a))
	assert.Contains(t, out.String(), `Added "Write report" (1) for 2024-03-10`)

	out.Reset()
	require.NoError(t, (&TaskListCmd{Date: "2024-03-10"}).Run(a))
	assert.Contains(t, out.String(), "Write report")
	assert.Contains(t, out.String(), "High")
	assert.NotContains(t, out.String(), "offline")

	out.Reset()
	require.NoError(t, (&TaskDoneCmd{Ref: "1"}).Run(a))
	assert.Contains(t, out.String(), `Completed "Write report"`)

	out.Reset()
	require.NoError(t, (&TaskReplicateCmd{Ref: "1", Target: "2024-03-11", End: "2024-03-12"}).Run(a))
	assert.Contains(t, out.String(), "Created 2 copies")

	out.Reset()
	require.NoError(t, (&TaskStatsCmd{Date: "2024-03-10"}).Run(a))
	assert.Contains(t, out.String(), "1/1 done")

	assert.Error(t, (&TaskEditCmd{Ref: "1"}).Run(a))
	require.NoError(t, (&TaskRmCmd{Ref: "1"}).Run(a))
}

func TestTaskCommandsOffline(t *testing.T) {
	ts := newTestServer(t)
	a, out := newTestApp(t, ts.URL)
	ts.Close()

	require.NoError(t, (&TaskAddCmd{Name: []string{"Plan", "week"}, Date: "2024-03-10"}).Run(a))
	assert.Contains(t, out.String(), "saved offline")

	out.Reset()
	require.NoError(t, (&TaskListCmd{Date: "2024-03-10"}).Run(a))
	assert.Contains(t, out.String(), "offline: showing cached data")
	assert.Contains(t, out.String(), "Plan week *")

	pending, err := a.mirror.PendingTasks(a.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	err = (&TaskReplicateCmd{Ref: pending[0].LocalID[:localRefLen], Target: "2024-03-11"}).Run(a)
	assert.ErrorContains(t, err, "ppctl sync")

	err = (&SyncCmd{}).Run(a)
	assert.Error(t, err)
}

func TestHabitCommandsOnline(t *testing.T) {
	ts := newTestServer(t)
	a, out := newTestApp(t, ts.URL)

	require.NoError(t, (&HabitAddCmd{Name: []string{"Read"}, Start: "2024-03-09", Duration: 5}).Run(a))
	assert.Contains(t, out.String(), `Started "Read" (1), 5 days from 2024-03-09`)

	require.NoError(t, (&HabitCheckCmd{Ref: "1", Date: "2024-03-09"}).Run(a))
	assert.Error(t, (&HabitCheckCmd{Ref: "1", Date: "2024-03-11"}).Run(a), "future day")

	out.Reset()
	require.NoError(t, (&HabitShowCmd{Ref: "1"}).Run(a))
	assert.Contains(t, out.String(), "1/5 days, 20%")

	out.Reset()
	require.NoError(t, (&HabitListCmd{}).Run(a))
	assert.Contains(t, out.String(), "Read")
	assert.Contains(t, out.String(), "5d")
}

func TestTaskListEncodedOutput(t *testing.T) {
	ts := newTestServer(t)
	a, out := newTestApp(t, ts.URL)
	require.NoError(t, (&TaskAddCmd{Name: []string{"Stretch"}, Date: "2024-03-10"}).Run(a))

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			a.format = format
			out.Reset()
			require.NoError(t, (&TaskListCmd{Date: "2024-03-10"}).Run(a))

			var got []offline.Task
			if format == "json" {
				require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			} else {
				require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
			}
			require.Len(t, got, 1)
			assert.Equal(t, "Stretch", got[0].Name)
			assert.Equal(t, int64(1), got[0].ServerID)
			assert.True(t, got[0].Synced)
		})
	}
}

func TestTechniquesFallsBackToCatalog(t *testing.T) {
	ts := newTestServer(t)
	a, out := newTestApp(t, ts.URL)
	ts.Close()

	require.NoError(t, (&TechniquesCmd{}).Run(a))
	assert.Contains(t, out.String(), "pomodoro")
}

func TestFocusRejectsUnknownTechnique(t *testing.T) {
	a, _ := newTestApp(t, "http://127.0.0.1:1")
	assert.Error(t, (&FocusCmd{Technique: "nope"}).Run(a))
	assert.Error(t, (&MeditateCmd{Minutes: 0}).Run(a))
}
