// Package client is a typed HTTP client for the ProgressPoint API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/study"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsOffline reports whether err is a transport failure rather than a
// rejection from the server. Only offline failures may be queued.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
			envelope.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Tasks

type CreateTaskRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Priority    model.Priority `json:"priority,omitempty"`
	Date        string         `json:"date,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, date string, priority model.Priority) ([]model.Task, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if priority != "" {
		q.Set("priority", string(priority))
	}
	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []model.Task
	return tasks, c.do(ctx, http.MethodGet, path, nil, &tasks)
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(id, 10), patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ReplicateTask(ctx context.Context, id int64, target, end string) ([]model.Task, error) {
	body := map[string]any{"taskId": id, "targetDate": target}
	if end != "" {
		body["endDate"] = end
	}
	var tasks []model.Task
	return tasks, c.do(ctx, http.MethodPost, "/api/tasks/replicate", body, &tasks)
}

func (c *Client) Stats(ctx context.Context, date string) (model.TaskStats, error) {
	var s model.TaskStats
	return s, c.do(ctx, http.MethodGet, "/api/tasks/stats/"+url.PathEscape(date), nil, &s)
}

func (c *Client) Streak(ctx context.Context) (int, error) {
	var out struct {
		Streak int `json:"streak"`
	}
	return out.Streak, c.do(ctx, http.MethodGet, "/api/tasks/streak", nil, &out)
}

// Habits

type CreateHabitRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

func (c *Client) ListHabits(ctx context.Context) ([]model.Habit, error) {
	var habits []model.Habit
	return habits, c.do(ctx, http.MethodGet, "/api/habits", nil, &habits)
}

func (c *Client) CreateHabit(ctx context.Context, req CreateHabitRequest) (*model.Habit, error) {
	var h model.Habit
	if err := c.do(ctx, http.MethodPost, "/api/habits", req, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) CheckHabit(ctx context.Context, id int64, date string, checked bool) error {
	body := map[string]any{"date": date, "checked": checked}
	return c.do(ctx, http.MethodPut, "/api/habits/"+strconv.FormatInt(id, 10)+"/check", body, nil)
}

func (c *Client) HabitChecks(ctx context.Context, id int64) ([]string, error) {
	var dates []string
	return dates, c.do(ctx, http.MethodGet, "/api/habits/"+strconv.FormatInt(id, 10)+"/checks", nil, &dates)
}

func (c *Client) HabitProgress(ctx context.Context, id int64) (model.HabitProgress, error) {
	var p model.HabitProgress
	return p, c.do(ctx, http.MethodGet, "/api/habits/"+strconv.FormatInt(id, 10)+"/progress", nil, &p)
}

// Sessions

func (c *Client) Tracks(ctx context.Context) ([]model.MeditationTrack, error) {
	var tracks []model.MeditationTrack
	return tracks, c.do(ctx, http.MethodGet, "/api/meditation/tracks", nil, &tracks)
}

func (c *Client) LogMeditation(ctx context.Context, trackID *int64, seconds int, completed bool) (*model.MeditationSession, error) {
	body := map[string]any{"track_id": trackID, "duration": seconds, "completed": completed}
	var m model.MeditationSession
	if err := c.do(ctx, http.MethodPost, "/api/meditation/sessions", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) LogStudy(ctx context.Context, technique string, seconds int, completed bool) (*model.StudySession, error) {
	body := map[string]any{"technique": technique, "duration": seconds, "completed": completed}
	var s model.StudySession
	if err := c.do(ctx, http.MethodPost, "/api/study/sessions", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Techniques(ctx context.Context) ([]study.Technique, error) {
	var ts []study.Technique
	return ts, c.do(ctx, http.MethodGet, "/api/study/techniques", nil, &ts)
}
