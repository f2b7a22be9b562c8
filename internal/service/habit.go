package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/progress"
	"github.com/dukerupert/progresspoint/internal/store"
)

type HabitService struct {
	habits *store.HabitStore
	clock  Clock
	logger *slog.Logger
}

func NewHabitService(hs *store.HabitStore, clock Clock, logger *slog.Logger) *HabitService {
	return &HabitService{habits: hs, clock: clock, logger: logger}
}

// NewHabit is the input for Create. Empty StartDate means today and a zero
// Duration means the default 21 days.
type NewHabit struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	Duration  int    `json:"duration"`
}

func (s *HabitService) List(ctx context.Context) ([]model.Habit, error) {
	habits, err := s.habits.List()
	if err != nil {
		return nil, storage("list habits", err)
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	return habits, nil
}

func (s *HabitService) Get(ctx context.Context, id int64) (*model.Habit, error) {
	h, err := s.habits.GetByID(id)
	if err != nil {
		return nil, storage("get habit", err)
	}
	if h == nil {
		return nil, &NotFoundError{Entity: "habit", ID: id}
	}
	return h, nil
}

func (s *HabitService) Create(ctx context.Context, in NewHabit) (*model.Habit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Duration == 0 {
		in.Duration = model.DefaultHabitDuration
	}
	if in.Duration < 0 {
		return nil, invalid("duration", "must be a positive number of days")
	}
	if in.StartDate == "" {
		in.StartDate = progress.FormatDate(s.clock.today())
	} else if _, err := parseDate("start_date", in.StartDate); err != nil {
		return nil, err
	}

	h, err := s.habits.Create(name, in.StartDate, in.Duration)
	if err != nil {
		return nil, storage("create habit", err)
	}
	s.logger.DebugContext(ctx, "habit created", "id", h.ID, "start", h.StartDate, "duration", h.Duration)
	return h, nil
}

// Check marks or unmarks one day of a habit. Marking a day done is refused
// for future days and for days whose predecessors are not all done.
func (s *HabitService) Check(ctx context.Context, habitID int64, date string, checked bool) error {
	if date == "" {
		return invalid("date", "is required")
	}
	day, err := parseDate("date", date)
	if err != nil {
		return err
	}

	h, err := s.Get(ctx, habitID)
	if err != nil {
		return err
	}
	window, err := progress.NewHabitWindow(h.StartDate, h.Duration)
	if err != nil {
		return storage("habit window", err)
	}

	dates, err := s.habits.CheckedDates(habitID)
	if err != nil {
		return storage("list habit checks", err)
	}
	marked := make(map[string]bool, len(dates))
	for _, d := range dates {
		marked[d] = true
	}

	if err := progress.CheckAllowed(window, marked, day, s.clock.today(), checked); err != nil {
		switch {
		case errors.Is(err, progress.ErrFutureDay),
			errors.Is(err, progress.ErrOutOfSequence),
			errors.Is(err, progress.ErrOutsideWindow):
			return &ValidationError{Field: "date", Message: err.Error()}
		}
		return err
	}

	if err := s.habits.SetCheck(habitID, progress.FormatDate(day), checked); err != nil {
		return storage("check habit", err)
	}
	return nil
}

func (s *HabitService) Progress(ctx context.Context, habitID int64) (model.HabitProgress, error) {
	h, err := s.Get(ctx, habitID)
	if err != nil {
		return model.HabitProgress{}, err
	}
	n, err := s.habits.CountChecked(habitID)
	if err != nil {
		return model.HabitProgress{}, storage("count habit checks", err)
	}
	return model.HabitProgress{
		Total:      h.Duration,
		Checked:    n,
		Percentage: progress.Percentage(n, h.Duration),
	}, nil
}

// Checks lists the dates currently marked done.
func (s *HabitService) Checks(ctx context.Context, habitID int64) ([]string, error) {
	if _, err := s.Get(ctx, habitID); err != nil {
		return nil, err
	}
	dates, err := s.habits.CheckedDates(habitID)
	if err != nil {
		return nil, storage("list habit checks", err)
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}
