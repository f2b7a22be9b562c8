package offline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/model"
)

// Report counts what one Sync delivered and what stayed pending.
type Report struct {
	Tasks   int
	Habits  int
	Checks  int
	Pending int
}

func (r Report) Delivered() int {
	return r.Tasks + r.Habits + r.Checks
}

// Syncer replays queued writes. Runs never overlap.
type Syncer struct {
	cache *Cache
	mu    sync.Mutex
}

func NewSyncer(cache *Cache) *Syncer {
	return &Syncer{cache: cache}
}

// Sync re-submits unsynced tasks and habits as creates, then replays
// queued checks of habits the server knows. Each record is marked synced on
// success and left pending on failure. Delivery is at least once: a crash
// between the remote create and recording its server id resubmits the
// record.
//
// A transport failure stops the run and is returned; rejections are logged
// and skipped so one bad record does not block the rest.
func (s *Syncer) Sync(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r Report
	c := s.cache

	tasks, err := c.mirror.PendingTasks(ctx)
	if err != nil {
		return r, err
	}
	for _, t := range tasks {
		if err := s.pushTask(ctx, t); err != nil {
			if client.IsOffline(err) {
				return r, err
			}
			c.logger.Warn("task sync rejected", "local_id", t.LocalID, "error", err)
			r.Pending++
			continue
		}
		r.Tasks++
	}

	habits, err := c.mirror.PendingHabits(ctx)
	if err != nil {
		return r, err
	}
	for _, h := range habits {
		created, err := c.api.CreateHabit(ctx, client.CreateHabitRequest{Name: h.Name, StartDate: h.StartDate, Duration: h.Duration})
		if err != nil {
			if client.IsOffline(err) {
				return r, err
			}
			c.logger.Warn("habit sync rejected", "local_id", h.LocalID, "error", err)
			r.Pending++
			continue
		}
		if err := c.mirror.MarkHabitSynced(ctx, h.LocalID, created.ID); err != nil {
			return r, err
		}
		r.Habits++
	}

	checks, err := c.mirror.PendingChecks(ctx)
	if err != nil {
		return r, err
	}
	for _, ch := range checks {
		if ch.HabitServerID == 0 {
			r.Pending++
			continue
		}
		if err := c.api.CheckHabit(ctx, ch.HabitServerID, ch.Date, ch.Checked); err != nil {
			if client.IsOffline(err) {
				return r, err
			}
			c.logger.Warn("check sync rejected", "habit", ch.HabitServerID, "date", ch.Date, "error", err)
			r.Pending++
			continue
		}
		if err := c.mirror.MarkCheckSynced(ctx, ch.HabitLocalID, ch.Date); err != nil {
			return r, err
		}
		r.Checks++
	}

	if r.Delivered() > 0 || r.Pending > 0 {
		c.logger.Info("sync finished", "tasks", r.Tasks, "habits", r.Habits, "checks", r.Checks, "pending", r.Pending)
	}
	return r, nil
}

// pushTask delivers t. Completion is not part of a create, so a task
// completed offline takes a follow-up update, and the task stays pending
// until that update lands. A task that already has a server id resumes
// after the create.
func (s *Syncer) pushTask(ctx context.Context, t Task) error {
	c := s.cache
	serverID := t.ServerID
	if serverID == 0 {
		created, err := c.api.CreateTask(ctx, client.CreateTaskRequest{
			Name:        t.Name,
			Description: t.Description,
			Priority:    t.Priority,
			Date:        t.Date,
		})
		if err != nil {
			return err
		}
		serverID = created.ID
		if err := c.mirror.SetTaskServerID(ctx, t.LocalID, serverID); err != nil {
			return err
		}
	}
	if t.Completed {
		done := true
		if _, err := c.api.UpdateTask(ctx, serverID, model.TaskPatch{Completed: &done}); err != nil {
			return fmt.Errorf("complete task %d: %w", serverID, err)
		}
	}
	if err := c.mirror.MarkTaskSynced(ctx, t.LocalID, serverID); err != nil {
		return fmt.Errorf("mark task synced: %w", err)
	}
	return nil
}
