package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/progresspoint/internal/model"
)

// FilterKind selects one of the fixed task list statements.
type FilterKind int

const (
	// FilterNone lists the latest date present.
	FilterNone FilterKind = iota
	FilterByDate
	// FilterByPriority lists one priority on the latest date present.
	FilterByPriority
	FilterByBoth
)

// TaskFilter is the explicit filter variant for listing tasks.
type TaskFilter struct {
	Kind     FilterKind
	Date     string
	Priority model.Priority
}

// NewTaskFilter picks the variant matching the supplied criteria.
func NewTaskFilter(date string, priority model.Priority) TaskFilter {
	switch {
	case date != "" && priority != "":
		return TaskFilter{Kind: FilterByBoth, Date: date, Priority: priority}
	case date != "":
		return TaskFilter{Kind: FilterByDate, Date: date}
	case priority != "":
		return TaskFilter{Kind: FilterByPriority, Priority: priority}
	default:
		return TaskFilter{Kind: FilterNone}
	}
}

const taskCols = `id, name, description, priority, date, completed, created_at`

const taskOrder = ` ORDER BY CASE priority WHEN 'High' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END, created_at ASC, id ASC`

const latestDate = `(SELECT MAX(date) FROM tasks)`

var taskListQueries = map[FilterKind]string{
	FilterNone:       `SELECT ` + taskCols + ` FROM tasks WHERE date = ` + latestDate + taskOrder,
	FilterByDate:     `SELECT ` + taskCols + ` FROM tasks WHERE date = ?` + taskOrder,
	FilterByPriority: `SELECT ` + taskCols + ` FROM tasks WHERE date = ` + latestDate + ` AND priority = ?` + taskOrder,
	FilterByBoth:     `SELECT ` + taskCols + ` FROM tasks WHERE date = ? AND priority = ?` + taskOrder,
}

func (f TaskFilter) args() []any {
	switch f.Kind {
	case FilterByDate:
		return []any{f.Date}
	case FilterByPriority:
		return []any{string(f.Priority)}
	case FilterByBoth:
		return []any{f.Date, string(f.Priority)}
	}
	return nil
}

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var priority string
	err := scanner.Scan(&t.ID, &t.Name, &t.Description, &priority, &t.Date, &t.Completed, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = model.Priority(priority)
	return &t, nil
}

func (s *TaskStore) Create(name, description string, priority model.Priority, date string) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (name, description, priority, date) VALUES (?, ?, ?, ?)`,
		name, description, string(priority), date,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateCopies inserts one copy of src per date inside a single transaction
// and returns the new rows in the order of dates.
func (s *TaskStore) CreateCopies(src model.Task, dates []string) ([]model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tasks (name, description, priority, date) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	copies := make([]model.Task, 0, len(dates))
	for _, date := range dates {
		result, err := stmt.Exec(src.Name, src.Description, string(src.Priority), date)
		if err != nil {
			return nil, fmt.Errorf("insert copy for %s: %w", date, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		t, err := scanTask(tx.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
		if err != nil {
			return nil, fmt.Errorf("read copy %d: %w", id, err)
		}
		copies = append(copies, *t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit copies: %w", err)
	}
	return copies, nil
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List(f TaskFilter) ([]model.Task, error) {
	query, ok := taskListQueries[f.Kind]
	if !ok {
		return nil, fmt.Errorf("list tasks: unknown filter %d", f.Kind)
	}
	rows, err := s.db.Query(query, f.args()...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// LatestDate returns the greatest task date, or "" when there are no tasks.
func (s *TaskStore) LatestDate() (string, error) {
	var date sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(date) FROM tasks`).Scan(&date); err != nil {
		return "", fmt.Errorf("latest task date: %w", err)
	}
	return date.String, nil
}

// Update overwrites only the fields set in p. Unset fields bind as NULL and
// COALESCE keeps the stored value.
func (s *TaskStore) Update(id int64, p model.TaskPatch) (*model.Task, error) {
	var name, description, priority, date sql.NullString
	var completed sql.NullBool
	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}
	if p.Description != nil {
		description = sql.NullString{String: *p.Description, Valid: true}
	}
	if p.Priority != nil {
		priority = sql.NullString{String: string(*p.Priority), Valid: true}
	}
	if p.Date != nil {
		date = sql.NullString{String: *p.Date, Valid: true}
	}
	if p.Completed != nil {
		completed = sql.NullBool{Bool: *p.Completed, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			priority = COALESCE(?, priority),
			date = COALESCE(?, date),
			completed = COALESCE(?, completed)
		 WHERE id = ?`,
		name, description, priority, date, completed, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Stats counts total and completed tasks for a date.
func (s *TaskStore) Stats(date string) (total, completed int, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END), 0) FROM tasks WHERE date = ?`,
		date,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("task stats: %w", err)
	}
	return total, completed, nil
}

// CompletedDates returns every date whose tasks are all completed, newest first.
func (s *TaskStore) CompletedDates() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT date FROM tasks
		 GROUP BY date
		 HAVING COUNT(*) > 0 AND SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END) = COUNT(*)
		 ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("completed dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
