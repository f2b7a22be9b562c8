package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/progress"
	"github.com/dukerupert/progresspoint/internal/tui"
)

type TaskCmd struct {
	List      TaskListCmd      `cmd:"" default:"withargs" help:"List tasks for a day."`
	Add       TaskAddCmd       `cmd:"" help:"Add a task. Opens a form when no name is given."`
	Done      TaskDoneCmd      `cmd:"" help:"Mark a task completed."`
	Edit      TaskEditCmd      `cmd:"" help:"Change a task."`
	Rm        TaskRmCmd        `cmd:"" help:"Delete a task."`
	Replicate TaskReplicateCmd `cmd:"" help:"Copy a task onto a day or a range of days."`
	Stats     TaskStatsCmd     `cmd:"" help:"Completion stats for a day."`
	Streak    TaskStreakCmd    `cmd:"" help:"Days in a row with every task done."`
}

func parsePriority(s string) (model.Priority, error) {
	if s == "" {
		return "", nil
	}
	p := model.Priority(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	if !p.Valid() {
		return "", fmt.Errorf("priority must be low, medium, or high")
	}
	return p, nil
}

type TaskListCmd struct {
	Date     string `help:"Day to list (YYYY-MM-DD). Defaults to the latest day with tasks."`
	Priority string `help:"Only this priority."`
}

func (c *TaskListCmd) Run(a *app) error {
	p, err := parsePriority(c.Priority)
	if err != nil {
		return err
	}
	tasks, src, err := a.cache.ListTasks(a.ctx, c.Date, p)
	if err != nil {
		return err
	}
	a.sourceNote(src)
	return a.emit(tasks, []string{"ID", "", "Priority", "Task", "Date"}, taskRows(tasks), "No tasks.")
}

type TaskAddCmd struct {
	Name        []string `arg:"" optional:"" help:"Task name."`
	Description string   `short:"d" help:"Longer description."`
	Priority    string   `short:"p" help:"low, medium, or high."`
	Date        string   `help:"Day of the task (YYYY-MM-DD). Defaults to today."`
}

// draft converts the flags. Missing fields are left for the form.
func (c *TaskAddCmd) draft() (tui.TaskDraft, error) {
	p, err := parsePriority(c.Priority)
	if err != nil {
		return tui.TaskDraft{}, err
	}
	return tui.TaskDraft{
		Name:        strings.Join(c.Name, " "),
		Description: c.Description,
		Priority:    p,
		Date:        c.Date,
	}, nil
}

func (c *TaskAddCmd) Run(a *app) error {
	draft, err := c.draft()
	if err != nil {
		return err
	}
	if strings.TrimSpace(draft.Name) == "" {
		if err := tui.TaskForm(&draft).RunWithContext(a.ctx); err != nil {
			return err
		}
	}

	t, src, err := a.cache.CreateTask(a.ctx, draft.Request())
	if err != nil {
		return err
	}
	savedNote(a.out, fmt.Sprintf("Added %q (%s) for %s", t.Name, ref(t.ServerID, t.LocalID), t.Date), src)
	return nil
}

type TaskDoneCmd struct {
	Ref  string `arg:"" help:"Task id."`
	Undo bool   `help:"Mark the task not completed instead."`
}

func (c *TaskDoneCmd) Run(a *app) error {
	done := !c.Undo
	t, src, err := a.cache.UpdateTask(a.ctx, c.Ref, model.TaskPatch{Completed: &done})
	if err != nil {
		return err
	}
	verb := "Completed"
	if c.Undo {
		verb = "Reopened"
	}
	savedNote(a.out, fmt.Sprintf("%s %q", verb, t.Name), src)
	return nil
}

type TaskEditCmd struct {
	Ref         string  `arg:"" help:"Task id."`
	Name        *string `help:"New name."`
	Description *string `short:"d" help:"New description."`
	Priority    *string `short:"p" help:"low, medium, or high."`
	Date        *string `help:"Move to this day (YYYY-MM-DD)."`
}

func (c *TaskEditCmd) Run(a *app) error {
	patch := model.TaskPatch{Name: c.Name, Description: c.Description, Date: c.Date}
	if c.Priority != nil {
		p, err := parsePriority(*c.Priority)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if patch.Empty() {
		return errors.New("nothing to change: pass --name, --description, --priority, or --date")
	}
	t, src, err := a.cache.UpdateTask(a.ctx, c.Ref, patch)
	if err != nil {
		return err
	}
	savedNote(a.out, fmt.Sprintf("Updated %q", t.Name), src)
	return nil
}

type TaskRmCmd struct {
	Ref string `arg:"" help:"Task id."`
}

func (c *TaskRmCmd) Run(a *app) error {
	src, err := a.cache.DeleteTask(a.ctx, c.Ref)
	if err != nil {
		return err
	}
	savedNote(a.out, "Deleted", src)
	return nil
}

type TaskReplicateCmd struct {
	Ref    string `arg:"" help:"Task id."`
	Target string `arg:"" help:"First day to copy onto (YYYY-MM-DD)."`
	End    string `arg:"" optional:"" help:"Last day of the range, inclusive."`
}

func (c *TaskReplicateCmd) Run(a *app) error {
	t, err := a.mirror.FindTask(a.ctx, c.Ref)
	if err != nil {
		return err
	}
	if t.ServerID == 0 {
		return errors.New("task has not reached the server yet: run ppctl sync first")
	}
	copies, err := a.api.ReplicateTask(a.ctx, t.ServerID, c.Target, c.End)
	if err != nil {
		return err
	}
	for _, cp := range copies {
		if err := a.mirror.PutRemoteTask(a.ctx, cp); err != nil {
			a.logger.Warn("mirror replicated task", "id", cp.ID, "error", err)
		}
	}
	fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("Created %d copies of %q", len(copies), t.Name)))
	return nil
}

type TaskStatsCmd struct {
	Date string `arg:"" optional:"" help:"Day (YYYY-MM-DD). Defaults to today."`
}

func (c *TaskStatsCmd) Run(a *app) error {
	date := c.Date
	if date == "" {
		date = progress.FormatDate(time.Now())
	}
	s, err := a.api.Stats(a.ctx, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %d/%d done, %d pending\n", date, s.Completed, s.Total, s.Pending)
	fmt.Fprintf(a.out, "%s %d%%\n", progressBar(s.Percentage, 30), s.Percentage)
	return nil
}

type TaskStreakCmd struct{}

func (c *TaskStreakCmd) Run(a *app) error {
	n, err := a.api.Streak(a.ctx)
	if err != nil {
		return err
	}
	unit := "days"
	if n == 1 {
		unit = "day"
	}
	fmt.Fprintf(a.out, "Streak: %d %s\n", n, unit)
	return nil
}
