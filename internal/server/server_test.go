package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/model"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Options{
		Version: "test",
		Clock:   func() time.Time { return fixedNow },
	}, logger)
	return srv.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, "GET", "/health", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "POST", "/api/tasks", map[string]string{"name": "Write report", "priority": "High"})
	expectStatus(t, rec, http.StatusCreated)
	task := decode[model.Task](t, rec)
	if task.Date != "2024-03-10" {
		t.Errorf("date = %q, want today", task.Date)
	}

	rec = do(t, h, "PUT", "/api/tasks/"+itoa(task.ID), map[string]bool{"completed": true})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[model.Task](t, rec)
	if !updated.Completed || updated.Name != "Write report" {
		t.Errorf("update = %+v, want completed with name kept", updated)
	}

	rec = do(t, h, "GET", "/api/tasks/stats/2024-03-10", nil)
	expectStatus(t, rec, http.StatusOK)
	stats := decode[model.TaskStats](t, rec)
	if stats.Total != 1 || stats.Percentage != 100 {
		t.Errorf("stats = %+v", stats)
	}

	rec = do(t, h, "GET", "/api/tasks/streak", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]int](t, rec)["streak"]; got != 1 {
		t.Errorf("streak = %d, want 1", got)
	}

	rec = do(t, h, "DELETE", "/api/tasks/"+itoa(task.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	if !decode[map[string]bool](t, rec)["success"] {
		t.Error("expected success")
	}

	// Deleting again is still a success.
	rec = do(t, h, "DELETE", "/api/tasks/"+itoa(task.ID), nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestTaskErrors(t *testing.T) {
	h := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing name", "POST", "/api/tasks", map[string]string{"name": "  "}, http.StatusBadRequest},
		{"bad priority", "POST", "/api/tasks", map[string]string{"name": "x", "priority": "Urgent"}, http.StatusBadRequest},
		{"bad date filter", "GET", "/api/tasks?date=03/10/2024", nil, http.StatusBadRequest},
		{"update absent", "PUT", "/api/tasks/999", map[string]string{"name": "x"}, http.StatusNotFound},
		{"bad id", "PUT", "/api/tasks/abc", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"replicate absent", "POST", "/api/tasks/replicate", map[string]any{"taskId": 999, "targetDate": "2024-03-11"}, http.StatusNotFound},
		{"replicate no id", "POST", "/api/tasks/replicate", map[string]any{"targetDate": "2024-03-11"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			expectStatus(t, rec, tt.want)
			if decode[map[string]string](t, rec)["error"] == "" {
				t.Error("expected error envelope")
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	h := setupRouter(t)
	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestReplicateRoute(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, "POST", "/api/tasks", map[string]string{"name": "Stretch", "date": "2024-03-10"})
	task := decode[model.Task](t, rec)

	rec = do(t, h, "POST", "/api/tasks/replicate", map[string]any{
		"taskId": task.ID, "targetDate": "2024-03-11", "endDate": "2024-03-13",
	})
	expectStatus(t, rec, http.StatusCreated)
	copies := decode[[]model.Task](t, rec)
	if len(copies) != 3 {
		t.Fatalf("copies = %d, want 3", len(copies))
	}
	if copies[0].Date != "2024-03-11" || copies[2].Date != "2024-03-13" {
		t.Errorf("dates = %s..%s", copies[0].Date, copies[2].Date)
	}

	rec = do(t, h, "POST", "/api/tasks/replicate", map[string]any{
		"taskId": task.ID, "targetDate": "2024-03-13", "endDate": "2024-03-11",
	})
	expectStatus(t, rec, http.StatusCreated)
	if got := decode[[]model.Task](t, rec); len(got) != 0 {
		t.Errorf("reversed range copies = %d, want 0", len(got))
	}
}

func TestHabitRoutes(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "POST", "/api/habits", map[string]any{"name": "Walk", "start_date": "2024-03-08", "duration": 5})
	expectStatus(t, rec, http.StatusCreated)
	habit := decode[model.Habit](t, rec)
	base := "/api/habits/" + itoa(habit.ID)

	// Day 2 before day 1 is out of sequence.
	rec = do(t, h, "PUT", base+"/check", map[string]any{"date": "2024-03-09", "checked": true})
	expectStatus(t, rec, http.StatusBadRequest)

	for _, d := range []string{"2024-03-08", "2024-03-09"} {
		rec = do(t, h, "PUT", base+"/check", map[string]any{"date": d, "checked": true})
		expectStatus(t, rec, http.StatusOK)
	}

	// Tomorrow is in the future.
	rec = do(t, h, "PUT", base+"/check", map[string]any{"date": "2024-03-11", "checked": true})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, "PUT", base+"/check", map[string]any{"date": "2024-03-10"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, "GET", base+"/checks", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]string](t, rec); len(got) != 2 || got[0] != "2024-03-08" {
		t.Errorf("checks = %v", got)
	}

	rec = do(t, h, "GET", base+"/progress", nil)
	expectStatus(t, rec, http.StatusOK)
	if p := decode[model.HabitProgress](t, rec); p.Checked != 2 || p.Percentage != 40 {
		t.Errorf("progress = %+v, want 2 checked at 40%%", p)
	}

	rec = do(t, h, "GET", "/api/habits/999/progress", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestSessionRoutes(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "GET", "/api/meditation/tracks", nil)
	expectStatus(t, rec, http.StatusOK)
	tracks := decode[[]model.MeditationTrack](t, rec)
	if len(tracks) == 0 {
		t.Fatal("expected seeded tracks")
	}

	rec = do(t, h, "POST", "/api/meditation/sessions", map[string]any{"track_id": tracks[0].ID, "duration": 600, "completed": true})
	expectStatus(t, rec, http.StatusCreated)

	rec = do(t, h, "POST", "/api/meditation/sessions", map[string]any{"track_id": 99999, "duration": 60})
	expectStatus(t, rec, http.StatusNotFound)

	rec = do(t, h, "POST", "/api/study/sessions", map[string]any{"technique": "pomodoro", "duration": 1500})
	expectStatus(t, rec, http.StatusCreated)

	rec = do(t, h, "POST", "/api/study/sessions", map[string]any{"duration": 1500})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, "GET", "/api/study/sessions", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.StudySession](t, rec); len(got) != 1 {
		t.Errorf("study sessions = %d, want 1", len(got))
	}

	rec = do(t, h, "GET", "/api/study/techniques", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]map[string]any](t, rec); len(got) != 17 {
		t.Errorf("techniques = %d, want 17", len(got))
	}
}

func TestStoryRoutes(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "GET", "/api/stories", nil)
	expectStatus(t, rec, http.StatusOK)
	stories := decode[[]model.Story](t, rec)
	if len(stories) == 0 {
		t.Fatal("expected seeded stories")
	}
	id := itoa(stories[0].ID)

	rec = do(t, h, "POST", "/api/stories/"+id+"/favorite", nil)
	expectStatus(t, rec, http.StatusOK)

	// The literal path must not be captured by {id}.
	rec = do(t, h, "GET", "/api/stories/favorites", nil)
	expectStatus(t, rec, http.StatusOK)
	favs := decode[[]model.Story](t, rec)
	if len(favs) != 1 || favs[0].ID != stories[0].ID {
		t.Errorf("favorites = %+v", favs)
	}

	rec = do(t, h, "GET", "/api/stories/999999", nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = do(t, h, "POST", "/api/stories/999999/favorite", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestBackupRoutesDisabled(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "GET", "/api/backups/status", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, h, "GET", "/api/backups", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Backup](t, rec); len(got) != 0 {
		t.Errorf("backups = %d, want 0", len(got))
	}

	rec = do(t, h, "POST", "/api/backups", nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestMethodNotAllowed(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, "PATCH", "/api/tasks", nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
