package model

import "time"

const DefaultHabitDuration = 21

type Habit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate string    `json:"start_date"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

type HabitCheck struct {
	HabitID int64  `json:"habit_id"`
	Date    string `json:"date"`
	Checked bool   `json:"checked"`
}

type HabitProgress struct {
	Total      int `json:"total"`
	Checked    int `json:"checked"`
	Percentage int `json:"percentage"`
}
