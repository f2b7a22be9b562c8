package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/progress"
	"github.com/dukerupert/progresspoint/internal/store"
)

type TaskService struct {
	tasks  *store.TaskStore
	clock  Clock
	logger *slog.Logger
}

func NewTaskService(ts *store.TaskStore, clock Clock, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: ts, clock: clock, logger: logger}
}

// NewTask is the input for Create. Empty Priority means Medium and empty
// Date means today.
type NewTask struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Priority    model.Priority `json:"priority"`
	Date        string         `json:"date"`
}

func checkPriority(p model.Priority) error {
	if !p.Valid() {
		return invalid("priority", "must be Low, Medium, or High")
	}
	return nil
}

// List returns the tasks for date (default: the latest date that has any
// task), optionally restricted to one priority, High first then by arrival.
func (s *TaskService) List(ctx context.Context, date string, priority model.Priority) ([]model.Task, error) {
	if date != "" {
		if _, err := parseDate("date", date); err != nil {
			return nil, err
		}
	}
	if priority != "" {
		if err := checkPriority(priority); err != nil {
			return nil, err
		}
	}

	tasks, err := s.tasks.List(store.NewTaskFilter(date, priority))
	if err != nil {
		return nil, storage("list tasks", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, in NewTask) (*model.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if err := checkPriority(in.Priority); err != nil {
		return nil, err
	}
	if in.Date == "" {
		in.Date = progress.FormatDate(s.clock.today())
	} else if _, err := parseDate("date", in.Date); err != nil {
		return nil, err
	}

	task, err := s.tasks.Create(name, in.Description, in.Priority, in.Date)
	if err != nil {
		return nil, storage("create task", err)
	}
	s.logger.DebugContext(ctx, "task created", "id", task.ID, "date", task.Date)
	return task, nil
}

// Update applies a partial update. Only supplied fields change.
func (s *TaskService) Update(ctx context.Context, id int64, p model.TaskPatch) (*model.Task, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("name", "cannot be empty")
		}
		p.Name = &name
	}
	if p.Priority != nil {
		if err := checkPriority(*p.Priority); err != nil {
			return nil, err
		}
	}
	if p.Date != nil {
		if _, err := parseDate("date", *p.Date); err != nil {
			return nil, err
		}
	}

	existing, err := s.tasks.GetByID(id)
	if err != nil {
		return nil, storage("get task", err)
	}
	if existing == nil {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}

	task, err := s.tasks.Update(id, p)
	if err != nil {
		return nil, storage("update task", err)
	}
	if task == nil {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}
	return task, nil
}

// Delete removes a task. Deleting an id that does not exist succeeds.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.tasks.Delete(id); err != nil {
		return storage("delete task", err)
	}
	return nil
}

// Replicate copies the name, description and priority of a task onto every
// day from targetDate through endDate inclusive (just targetDate when
// endDate is empty). The copies come back in calendar order; an end before
// the start produces none.
func (s *TaskService) Replicate(ctx context.Context, taskID int64, targetDate, endDate string) ([]model.Task, error) {
	if targetDate == "" {
		return nil, invalid("targetDate", "is required")
	}
	from, err := parseDate("targetDate", targetDate)
	if err != nil {
		return nil, err
	}
	to := from
	if endDate != "" {
		if to, err = parseDate("endDate", endDate); err != nil {
			return nil, err
		}
	}

	src, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, storage("get task", err)
	}
	if src == nil {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}

	dates := progress.Days(from, to)
	if len(dates) == 0 {
		return []model.Task{}, nil
	}

	copies, err := s.tasks.CreateCopies(*src, dates)
	if err != nil {
		return nil, storage("replicate task", err)
	}
	s.logger.InfoContext(ctx, "task replicated", "id", taskID, "from", targetDate, "to", dates[len(dates)-1], "copies", len(copies))
	return copies, nil
}

func (s *TaskService) Stats(ctx context.Context, date string) (model.TaskStats, error) {
	if date == "" {
		date = progress.FormatDate(s.clock.today())
	} else if _, err := parseDate("date", date); err != nil {
		return model.TaskStats{}, err
	}

	total, completed, err := s.tasks.Stats(date)
	if err != nil {
		return model.TaskStats{}, storage("task stats", err)
	}
	return model.TaskStats{
		Total:      total,
		Completed:  completed,
		Pending:    total - completed,
		Percentage: progress.Percentage(completed, total),
	}, nil
}

// Streak is the number of consecutive fully completed days ending today.
func (s *TaskService) Streak(ctx context.Context) (int, error) {
	dates, err := s.tasks.CompletedDates()
	if err != nil {
		return 0, storage("streak", err)
	}
	return progress.Streak(dates, s.clock.today()), nil
}
