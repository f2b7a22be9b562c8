package tui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/model"
)

// TaskDraft backs the new-task form.
type TaskDraft struct {
	Name        string
	Description string
	Priority    model.Priority
	Date        string
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func validateDuration(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("duration must be a positive number of days")
	}
	return nil
}

// TaskForm builds a form that fills d. Fields already set on d are used as
// defaults.
func TaskForm(d *TaskDraft) *huh.Form {
	if d.Priority == "" {
		d.Priority = model.PriorityMedium
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Value(&d.Name).
				Validate(validateName),
			huh.NewText().
				Title("Description").
				Value(&d.Description),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Medium", model.PriorityMedium),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&d.Priority),
			huh.NewInput().
				Title("Date").
				Description("YYYY-MM-DD, empty for today").
				Value(&d.Date).
				Validate(validateDate),
		),
	)
}

// Request converts the draft into an API request.
func (d TaskDraft) Request() client.CreateTaskRequest {
	return client.CreateTaskRequest{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Priority:    d.Priority,
		Date:        d.Date,
	}
}

type HabitDraft struct {
	Name      string
	StartDate string
	Duration  string
}

func HabitForm(d *HabitDraft) *huh.Form {
	if d.Duration == "" {
		d.Duration = strconv.Itoa(model.DefaultHabitDuration)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit").
				Value(&d.Name).
				Validate(validateName),
			huh.NewInput().
				Title("Start date").
				Description("YYYY-MM-DD, empty for today").
				Value(&d.StartDate).
				Validate(validateDate),
			huh.NewInput().
				Title("Duration (days)").
				Value(&d.Duration).
				Validate(validateDuration),
		),
	)
}

// Request converts the draft. The form validators guarantee Duration parses.
func (d HabitDraft) Request() client.CreateHabitRequest {
	n, _ := strconv.Atoi(strings.TrimSpace(d.Duration))
	return client.CreateHabitRequest{
		Name:      strings.TrimSpace(d.Name),
		StartDate: d.StartDate,
		Duration:  n,
	}
}
