package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/progress"
)

// API is the part of the server API the cache needs. *client.Client
// implements it.
type API interface {
	ListTasks(ctx context.Context, date string, priority model.Priority) ([]model.Task, error)
	CreateTask(ctx context.Context, req client.CreateTaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListHabits(ctx context.Context) ([]model.Habit, error)
	CreateHabit(ctx context.Context, req client.CreateHabitRequest) (*model.Habit, error)
	CheckHabit(ctx context.Context, id int64, date string, checked bool) error
	HabitChecks(ctx context.Context, id int64) ([]string, error)
}

// Source tells where a result came from.
type Source int

const (
	Remote Source = iota
	Local
)

func (s Source) String() string {
	if s == Local {
		return "offline"
	}
	return "online"
}

// ErrServerRecord is returned when a change to a record the server already
// owns is attempted while offline. Only creates and habit checks queue.
var ErrServerRecord = errors.New("record lives on the server and cannot be changed offline")

var errBadDate = errors.New("date must be YYYY-MM-DD")

// validDate matches the server's date check, so a queued record the server
// would refuse is rejected before it reaches the mirror.
func validDate(s string) error {
	if _, err := progress.ParseDate(s); err != nil {
		return errBadDate
	}
	return nil
}

const defaultHabitDuration = 21

// Cache puts the mirror in front of the API. Reads prefer the server and
// refresh the mirror; writes prefer the server and queue locally only when
// the server is unreachable. Rejections from the server are returned, never
// queued.
type Cache struct {
	api    API
	mirror *Mirror
	now    func() time.Time
	logger *slog.Logger
}

func NewCache(api API, mirror *Mirror, now func() time.Time, logger *slog.Logger) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{api: api, mirror: mirror, now: now, logger: logger}
}

func (c *Cache) today() string {
	return progress.FormatDate(progress.Today(c.now()))
}

func (c *Cache) ListTasks(ctx context.Context, date string, priority model.Priority) ([]Task, Source, error) {
	// The unfiltered read also refreshes rows of other priorities.
	remote, err := c.api.ListTasks(ctx, date, "")
	if err != nil {
		if !client.IsOffline(err) {
			return nil, Remote, err
		}
		c.logger.Debug("listing tasks from mirror", "error", err)
		tasks, lerr := c.mirror.ListTasks(ctx, date, priority)
		return tasks, Local, lerr
	}
	if err := c.mirror.PutRemoteTasks(ctx, date, remote); err != nil {
		return nil, Remote, err
	}
	if date == "" && len(remote) > 0 {
		date = remote[0].Date
	}
	tasks, err := c.mirror.ListTasks(ctx, date, priority)
	return tasks, Remote, err
}

func (c *Cache) CreateTask(ctx context.Context, req client.CreateTaskRequest) (*Task, Source, error) {
	created, err := c.api.CreateTask(ctx, req)
	if err == nil {
		if perr := c.mirror.PutRemoteTask(ctx, *created); perr != nil {
			c.logger.Warn("mirror created task", "id", created.ID, "error", perr)
		}
		t, ferr := c.mirror.TaskByServerID(ctx, created.ID)
		if ferr != nil || t == nil {
			local := fromModelTask(*created)
			return &local, Remote, nil
		}
		return t, Remote, nil
	}
	if !client.IsOffline(err) {
		return nil, Remote, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, Local, errors.New("name is required")
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, Local, fmt.Errorf("priority must be Low, Medium, or High")
	}
	if req.Date == "" {
		req.Date = c.today()
	}
	if err := validDate(req.Date); err != nil {
		return nil, Local, err
	}
	t, serr := c.mirror.SaveTask(ctx, Task{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		Date:        req.Date,
	})
	if serr != nil {
		return nil, Local, serr
	}
	c.logger.Info("task queued for sync", "local_id", t.LocalID)
	return t, Local, nil
}

// UpdateTask changes a task by mirror reference. Tasks not yet on the
// server are edited in place and carried by their pending create.
func (c *Cache) UpdateTask(ctx context.Context, ref string, patch model.TaskPatch) (*Task, Source, error) {
	t, err := c.mirror.FindTask(ctx, ref)
	if err != nil {
		return nil, Local, err
	}
	if t.ServerID == 0 {
		if patch.Date != nil {
			if err := validDate(*patch.Date); err != nil {
				return nil, Local, err
			}
		}
		updated, err := c.mirror.UpdateTask(ctx, t.LocalID, patch)
		return updated, Local, err
	}

	remote, err := c.api.UpdateTask(ctx, t.ServerID, patch)
	if err != nil {
		if client.IsOffline(err) {
			return nil, Local, fmt.Errorf("%w: %v", ErrServerRecord, err)
		}
		return nil, Remote, err
	}
	if !t.Synced {
		// Created on the server but still pending; keep the local view in
		// step without marking it synced.
		updated, err := c.mirror.UpdateTask(ctx, t.LocalID, patch)
		return updated, Remote, err
	}
	if err := c.mirror.PutRemoteTask(ctx, *remote); err != nil {
		return nil, Remote, err
	}
	updated, err := c.mirror.TaskByServerID(ctx, remote.ID)
	return updated, Remote, err
}

func (c *Cache) DeleteTask(ctx context.Context, ref string) (Source, error) {
	t, err := c.mirror.FindTask(ctx, ref)
	if err != nil {
		return Local, err
	}
	if t.ServerID == 0 {
		return Local, c.mirror.DeleteTask(ctx, t.LocalID)
	}
	if err := c.api.DeleteTask(ctx, t.ServerID); err != nil {
		if client.IsOffline(err) {
			return Local, fmt.Errorf("%w: %v", ErrServerRecord, err)
		}
		return Remote, err
	}
	return Remote, c.mirror.DeleteTask(ctx, t.LocalID)
}

func (c *Cache) ListHabits(ctx context.Context) ([]Habit, Source, error) {
	remote, err := c.api.ListHabits(ctx)
	if err != nil {
		if !client.IsOffline(err) {
			return nil, Remote, err
		}
		habits, lerr := c.mirror.ListHabits(ctx)
		return habits, Local, lerr
	}
	if err := c.mirror.PutRemoteHabits(ctx, remote); err != nil {
		return nil, Remote, err
	}
	habits, err := c.mirror.ListHabits(ctx)
	return habits, Remote, err
}

func (c *Cache) CreateHabit(ctx context.Context, req client.CreateHabitRequest) (*Habit, Source, error) {
	created, err := c.api.CreateHabit(ctx, req)
	if err == nil {
		if perr := c.mirror.PutRemoteHabit(ctx, *created); perr != nil {
			c.logger.Warn("mirror created habit", "id", created.ID, "error", perr)
		}
		h, ferr := c.mirror.HabitByServerID(ctx, created.ID)
		if ferr != nil || h == nil {
			return &Habit{ServerID: created.ID, Name: created.Name, StartDate: created.StartDate, Duration: created.Duration, Synced: true}, Remote, nil
		}
		return h, Remote, nil
	}
	if !client.IsOffline(err) {
		return nil, Remote, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, Local, errors.New("name is required")
	}
	if req.StartDate == "" {
		req.StartDate = c.today()
	}
	if err := validDate(req.StartDate); err != nil {
		return nil, Local, err
	}
	if req.Duration == 0 {
		req.Duration = defaultHabitDuration
	}
	if req.Duration < 0 {
		return nil, Local, fmt.Errorf("duration must be positive")
	}
	h, serr := c.mirror.SaveHabit(ctx, Habit{Name: req.Name, StartDate: req.StartDate, Duration: req.Duration})
	if serr != nil {
		return nil, Local, serr
	}
	c.logger.Info("habit queued for sync", "local_id", h.LocalID)
	return h, Local, nil
}

// CheckHabit marks a day. Offline checks are gated locally against the
// mirrored checks and queued for sync.
func (c *Cache) CheckHabit(ctx context.Context, ref, date string, checked bool) (Source, error) {
	h, err := c.mirror.FindHabit(ctx, ref)
	if err != nil {
		return Local, err
	}
	if date == "" {
		date = c.today()
	}

	if h.ServerID != 0 {
		err := c.api.CheckHabit(ctx, h.ServerID, date, checked)
		if err == nil {
			return Remote, c.mirror.CheckHabit(ctx, h.LocalID, date, checked, true)
		}
		if !client.IsOffline(err) {
			return Remote, err
		}
	}

	if err := c.gate(ctx, h, date, checked); err != nil {
		return Local, err
	}
	return Local, c.mirror.CheckHabit(ctx, h.LocalID, date, checked, false)
}

func (c *Cache) gate(ctx context.Context, h *Habit, date string, checked bool) error {
	day, err := progress.ParseDate(date)
	if err != nil {
		return errBadDate
	}
	window, err := progress.NewHabitWindow(h.StartDate, h.Duration)
	if err != nil {
		return err
	}
	dates, err := c.mirror.CheckedDates(ctx, h.LocalID)
	if err != nil {
		return err
	}
	marked := make(map[string]bool, len(dates))
	for _, d := range dates {
		marked[d] = true
	}
	return progress.CheckAllowed(window, marked, day, progress.Today(c.now()), checked)
}

// HabitChecks returns the checked dates of a habit, including queued ones.
func (c *Cache) HabitChecks(ctx context.Context, ref string) ([]string, Source, error) {
	h, err := c.mirror.FindHabit(ctx, ref)
	if err != nil {
		return nil, Local, err
	}
	if h.ServerID != 0 {
		dates, err := c.api.HabitChecks(ctx, h.ServerID)
		if err == nil {
			if err := c.mirror.PutRemoteChecks(ctx, h.LocalID, dates); err != nil {
				return nil, Remote, err
			}
			merged, err := c.mirror.CheckedDates(ctx, h.LocalID)
			return merged, Remote, err
		}
		if !client.IsOffline(err) {
			return nil, Remote, err
		}
	}
	dates, err := c.mirror.CheckedDates(ctx, h.LocalID)
	return dates, Local, err
}
