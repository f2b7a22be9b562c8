package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/progresspoint/internal/model"
)

type HabitStore struct {
	db *sql.DB
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db}
}

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	err := scanner.Scan(&h.ID, &h.Name, &h.StartDate, &h.Duration, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const habitCols = `id, name, start_date, duration, created_at`

func (s *HabitStore) Create(name, startDate string, duration int) (*model.Habit, error) {
	result, err := s.db.Exec(
		`INSERT INTO habits (name, start_date, duration) VALUES (?, ?, ?)`,
		name, startDate, duration,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HabitStore) GetByID(id int64) (*model.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitCols+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// List returns habits newest first.
func (s *HabitStore) List() ([]model.Habit, error) {
	rows, err := s.db.Query(`SELECT ` + habitCols + ` FROM habits ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// SetCheck upserts the mark for one habit day.
func (s *HabitStore) SetCheck(habitID int64, date string, checked bool) error {
	_, err := s.db.Exec(
		`INSERT INTO habit_checks (habit_id, date, checked) VALUES (?, ?, ?)
		 ON CONFLICT (habit_id, date) DO UPDATE SET checked = excluded.checked`,
		habitID, date, checked,
	)
	if err != nil {
		return fmt.Errorf("set habit check: %w", err)
	}
	return nil
}

// CheckedDates returns the checked dates of a habit in ascending order.
func (s *HabitStore) CheckedDates(habitID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT date FROM habit_checks WHERE habit_id = ? AND checked = 1 ORDER BY date ASC`,
		habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habit checks: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan habit check: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *HabitStore) CountChecked(habitID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM habit_checks WHERE habit_id = ? AND checked = 1`, habitID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count habit checks: %w", err)
	}
	return n, nil
}
