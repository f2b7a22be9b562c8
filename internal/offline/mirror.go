// Package offline keeps a local copy of tasks and habits so the client
// keeps working without the server, and replays local writes once the
// server is reachable again.
package offline

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/progresspoint/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

var (
	// ErrNotFound is returned for an unknown local id.
	ErrNotFound  = errors.New("not found in offline mirror")
	ErrAmbiguous = errors.New("id prefix matches more than one record")
)

// Task is a mirrored task. ServerID is zero until the server has the record.
type Task struct {
	LocalID     string         `json:"local_id" yaml:"local_id"`
	ServerID    int64          `json:"server_id,omitempty" yaml:"server_id,omitempty"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Priority    model.Priority `json:"priority" yaml:"priority"`
	Date        string         `json:"date" yaml:"date"`
	Completed   bool           `json:"completed" yaml:"completed"`
	Synced      bool           `json:"synced" yaml:"synced"`
}

type Habit struct {
	LocalID   string `json:"local_id" yaml:"local_id"`
	ServerID  int64  `json:"server_id,omitempty" yaml:"server_id,omitempty"`
	Name      string `json:"name" yaml:"name"`
	StartDate string `json:"start_date" yaml:"start_date"`
	Duration  int    `json:"duration" yaml:"duration"`
	Synced    bool   `json:"synced" yaml:"synced"`
}

// Check is a pending habit check. HabitServerID is zero while the habit
// itself is unsynced.
type Check struct {
	HabitLocalID  string
	HabitServerID int64
	Date          string
	Checked       bool
}

type Mirror struct {
	db *sql.DB
}

// OpenMirror opens (creating if needed) the mirror database at path.
func OpenMirror(ctx context.Context, path string) (*Mirror, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Mirror{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("mirror migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("mirror migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("mirror goose up: %w", err)
	}
	return nil
}

func (m *Mirror) Close() error {
	return m.db.Close()
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// Tasks

const taskCols = `local_id, server_id, name, description, priority, date, completed, synced`

const taskOrder = ` ORDER BY CASE priority WHEN 'High' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END, created_at ASC, rowid ASC`

func scanTask(scanner interface{ Scan(...any) error }) (*Task, error) {
	var t Task
	var serverID sql.NullInt64
	var priority string
	if err := scanner.Scan(&t.LocalID, &serverID, &t.Name, &t.Description, &priority, &t.Date, &t.Completed, &t.Synced); err != nil {
		return nil, err
	}
	t.ServerID = serverID.Int64
	t.Priority = model.Priority(priority)
	return &t, nil
}

func fromModelTask(t model.Task) Task {
	return Task{
		ServerID:    t.ID,
		Name:        t.Name,
		Description: t.Description,
		Priority:    t.Priority,
		Date:        t.Date,
		Completed:   t.Completed,
		Synced:      true,
	}
}

// SaveTask stores a task written while offline. It gets a fresh local id
// and stays unsynced until Sync delivers it.
func (m *Mirror) SaveTask(ctx context.Context, t Task) (*Task, error) {
	t.LocalID = uuid.NewString()
	t.ServerID = 0
	t.Synced = false
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO tasks (local_id, name, description, priority, date, completed, synced) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		t.LocalID, t.Name, t.Description, string(t.Priority), t.Date, t.Completed,
	)
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return &t, nil
}

// PutRemoteTasks refreshes the mirror with tasks read from the server for
// date (empty when the server picked the date). Synced rows on the listed
// dates that the server no longer returns are dropped; unsynced rows are
// never touched.
func (m *Mirror) PutRemoteTasks(ctx context.Context, date string, tasks []model.Task) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	keep := map[string][]int64{}
	if date != "" {
		keep[date] = nil
	}
	for _, t := range tasks {
		keep[t.Date] = append(keep[t.Date], t.ID)
	}
	for date, ids := range keep {
		rows, err := tx.QueryContext(ctx, `SELECT server_id FROM tasks WHERE date = ? AND synced = 1`, date)
		if err != nil {
			return fmt.Errorf("list mirrored tasks: %w", err)
		}
		var stale []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan mirrored task: %w", err)
			}
			if !containsID(ids, id) {
				stale = append(stale, id)
			}
		}
		rows.Close()
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE server_id = ?`, id); err != nil {
				return fmt.Errorf("drop stale task: %w", err)
			}
		}
	}

	for _, t := range tasks {
		if err := upsertRemoteTask(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remote tasks: %w", err)
	}
	return nil
}

// PutRemoteTask mirrors one server task without pruning its date. A row
// still waiting to sync keeps its local state.
func (m *Mirror) PutRemoteTask(ctx context.Context, t model.Task) error {
	return upsertRemoteTask(ctx, m.db, t)
}

func upsertRemoteTask(ctx context.Context, db execer, t model.Task) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tasks (local_id, server_id, name, description, priority, date, completed, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(server_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			priority = excluded.priority,
			date = excluded.date,
			completed = excluded.completed,
			synced = 1
		 WHERE tasks.synced = 1`,
		uuid.NewString(), t.ID, t.Name, t.Description, string(t.Priority), t.Date, t.Completed,
	)
	if err != nil {
		return fmt.Errorf("upsert task %d: %w", t.ID, err)
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ListTasks mirrors the server listing: date defaults to the latest date
// present, High priority first.
func (m *Mirror) ListTasks(ctx context.Context, date string, priority model.Priority) ([]Task, error) {
	query := `SELECT ` + taskCols + ` FROM tasks WHERE date = COALESCE(NULLIF(?, ''), (SELECT MAX(date) FROM tasks))`
	args := []any{date}
	if priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(priority))
	}
	rows, err := m.db.QueryContext(ctx, query+taskOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list mirrored tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (m *Mirror) Task(ctx context.Context, localID string) (*Task, error) {
	t, err := scanTask(m.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE local_id = ?`, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mirrored task: %w", err)
	}
	return t, nil
}

// TaskByServerID returns nil, nil when the server id is not mirrored.
func (m *Mirror) TaskByServerID(ctx context.Context, serverID int64) (*Task, error) {
	t, err := scanTask(m.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE server_id = ?`, serverID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mirrored task: %w", err)
	}
	return t, nil
}

// UpdateTask applies patch to a mirrored task. It does not change the
// synced flag.
func (m *Mirror) UpdateTask(ctx context.Context, localID string, p model.TaskPatch) (*Task, error) {
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
	res, err := m.db.ExecContext(ctx,
		`UPDATE tasks SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			priority = COALESCE(?, priority),
			date = COALESCE(?, date),
			completed = COALESCE(?, completed)
		 WHERE local_id = ?`,
		name, description, priority, date, completed, localID,
	)
	if err != nil {
		return nil, fmt.Errorf("update mirrored task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return m.Task(ctx, localID)
}

func (m *Mirror) DeleteTask(ctx context.Context, localID string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM tasks WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("delete mirrored task: %w", err)
	}
	return nil
}

func (m *Mirror) PendingTasks(ctx context.Context) ([]Task, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE synced = 0 ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// SetTaskServerID records that the server created the task but leaves it
// pending, so the next sync resumes after the create.
func (m *Mirror) SetTaskServerID(ctx context.Context, localID string, serverID int64) error {
	_, err := m.db.ExecContext(ctx, `UPDATE tasks SET server_id = ? WHERE local_id = ?`, nullID(serverID), localID)
	if err != nil {
		return fmt.Errorf("set task server id: %w", err)
	}
	return nil
}

// MarkTaskSynced records that the server now holds the task under serverID.
func (m *Mirror) MarkTaskSynced(ctx context.Context, localID string, serverID int64) error {
	_, err := m.db.ExecContext(ctx, `UPDATE tasks SET synced = 1, server_id = ? WHERE local_id = ?`, nullID(serverID), localID)
	if err != nil {
		return fmt.Errorf("mark task synced: %w", err)
	}
	return nil
}

// Habits

const habitCols = `local_id, server_id, name, start_date, duration, synced`

func scanHabit(scanner interface{ Scan(...any) error }) (*Habit, error) {
	var h Habit
	var serverID sql.NullInt64
	if err := scanner.Scan(&h.LocalID, &serverID, &h.Name, &h.StartDate, &h.Duration, &h.Synced); err != nil {
		return nil, err
	}
	h.ServerID = serverID.Int64
	return &h, nil
}

func (m *Mirror) SaveHabit(ctx context.Context, h Habit) (*Habit, error) {
	h.LocalID = uuid.NewString()
	h.ServerID = 0
	h.Synced = false
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO habits (local_id, name, start_date, duration, synced) VALUES (?, ?, ?, ?, 0)`,
		h.LocalID, h.Name, h.StartDate, h.Duration,
	)
	if err != nil {
		return nil, fmt.Errorf("save habit: %w", err)
	}
	return &h, nil
}

// PutRemoteHabits replaces the synced habits with the server's list.
// Unsynced habits and their checks survive.
func (m *Mirror) PutRemoteHabits(ctx context.Context, habits []model.Habit) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Oldest first, so rowid order matches server order on a fresh mirror.
	ids := make([]int64, 0, len(habits))
	for i := len(habits) - 1; i >= 0; i-- {
		ids = append(ids, habits[i].ID)
		if err := upsertRemoteHabit(ctx, tx, habits[i]); err != nil {
			return err
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT server_id FROM habits WHERE synced = 1`)
	if err != nil {
		return fmt.Errorf("list mirrored habits: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan habit: %w", err)
		}
		if !containsID(ids, id) {
			stale = append(stale, id)
		}
	}
	rows.Close()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE server_id = ?`, id); err != nil {
			return fmt.Errorf("drop stale habit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remote habits: %w", err)
	}
	return nil
}

// PutRemoteHabit mirrors one server habit without touching the others.
func (m *Mirror) PutRemoteHabit(ctx context.Context, h model.Habit) error {
	return upsertRemoteHabit(ctx, m.db, h)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertRemoteHabit(ctx context.Context, db execer, h model.Habit) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO habits (local_id, server_id, name, start_date, duration, synced)
		 VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT(server_id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			duration = excluded.duration,
			synced = 1`,
		uuid.NewString(), h.ID, h.Name, h.StartDate, h.Duration,
	)
	if err != nil {
		return fmt.Errorf("upsert habit %d: %w", h.ID, err)
	}
	return nil
}

// ListHabits returns habits newest first.
func (m *Mirror) ListHabits(ctx context.Context) ([]Habit, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+habitCols+` FROM habits ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list mirrored habits: %w", err)
	}
	defer rows.Close()

	habits := []Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (m *Mirror) Habit(ctx context.Context, localID string) (*Habit, error) {
	h, err := scanHabit(m.db.QueryRowContext(ctx, `SELECT `+habitCols+` FROM habits WHERE local_id = ?`, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mirrored habit: %w", err)
	}
	return h, nil
}

func (m *Mirror) PendingHabits(ctx context.Context) ([]Habit, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+habitCols+` FROM habits WHERE synced = 0 ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("pending habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (m *Mirror) MarkHabitSynced(ctx context.Context, localID string, serverID int64) error {
	_, err := m.db.ExecContext(ctx, `UPDATE habits SET synced = 1, server_id = ? WHERE local_id = ?`, nullID(serverID), localID)
	if err != nil {
		return fmt.Errorf("mark habit synced: %w", err)
	}
	return nil
}

// Habit checks

// CheckHabit records a check for a mirrored habit. synced says whether the
// server already has it.
func (m *Mirror) CheckHabit(ctx context.Context, habitLocalID, date string, checked, synced bool) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO habit_checks (habit_local_id, date, checked, synced) VALUES (?, ?, ?, ?)
		 ON CONFLICT(habit_local_id, date) DO UPDATE SET checked = excluded.checked, synced = excluded.synced`,
		habitLocalID, date, checked, synced,
	)
	if err != nil {
		return fmt.Errorf("check mirrored habit: %w", err)
	}
	return nil
}

// CheckedDates returns the mirrored checked dates of a habit, ascending.
func (m *Mirror) CheckedDates(ctx context.Context, habitLocalID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT date FROM habit_checks WHERE habit_local_id = ? AND checked = 1 ORDER BY date ASC`, habitLocalID)
	if err != nil {
		return nil, fmt.Errorf("mirrored checks: %w", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// PutRemoteChecks replaces the synced checks of a habit with the server's
// checked dates.
func (m *Mirror) PutRemoteChecks(ctx context.Context, habitLocalID string, dates []string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_checks WHERE habit_local_id = ? AND synced = 1`, habitLocalID); err != nil {
		return fmt.Errorf("clear remote checks: %w", err)
	}
	for _, d := range dates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO habit_checks (habit_local_id, date, checked, synced) VALUES (?, ?, 1, 1)
			 ON CONFLICT(habit_local_id, date) DO NOTHING`,
			habitLocalID, d,
		)
		if err != nil {
			return fmt.Errorf("insert remote check: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remote checks: %w", err)
	}
	return nil
}

// PendingChecks returns unsynced checks in date order so replay respects
// the sequential-day rule.
func (m *Mirror) PendingChecks(ctx context.Context) ([]Check, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT c.habit_local_id, COALESCE(h.server_id, 0), c.date, c.checked
		 FROM habit_checks c JOIN habits h ON h.local_id = c.habit_local_id
		 WHERE c.synced = 0
		 ORDER BY c.habit_local_id, c.date ASC`)
	if err != nil {
		return nil, fmt.Errorf("pending checks: %w", err)
	}
	defer rows.Close()

	var checks []Check
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.HabitLocalID, &c.HabitServerID, &c.Date, &c.Checked); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (m *Mirror) MarkCheckSynced(ctx context.Context, habitLocalID, date string) error {
	_, err := m.db.ExecContext(ctx, `UPDATE habit_checks SET synced = 1 WHERE habit_local_id = ? AND date = ?`, habitLocalID, date)
	if err != nil {
		return fmt.Errorf("mark check synced: %w", err)
	}
	return nil
}

// HabitByServerID returns nil, nil when the server id is not mirrored.
func (m *Mirror) HabitByServerID(ctx context.Context, serverID int64) (*Habit, error) {
	h, err := scanHabit(m.db.QueryRowContext(ctx, `SELECT `+habitCols+` FROM habits WHERE server_id = ?`, serverID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mirrored habit: %w", err)
	}
	return h, nil
}

// FindTask resolves a user-supplied reference: a server id, or a unique
// prefix of a local id.
func (m *Mirror) FindTask(ctx context.Context, ref string) (*Task, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		t, err := m.TaskByServerID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	localID, err := m.resolvePrefix(ctx, "tasks", ref)
	if err != nil {
		return nil, err
	}
	return m.Task(ctx, localID)
}

// FindHabit resolves a server id or a unique local id prefix.
func (m *Mirror) FindHabit(ctx context.Context, ref string) (*Habit, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		h, err := m.HabitByServerID(ctx, id)
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}
	localID, err := m.resolvePrefix(ctx, "habits", ref)
	if err != nil {
		return nil, err
	}
	return m.Habit(ctx, localID)
}

// resolvePrefix is only called with the fixed table names above.
func (m *Mirror) resolvePrefix(ctx context.Context, table, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrNotFound
	}
	rows, err := m.db.QueryContext(ctx, `SELECT local_id FROM `+table+` WHERE substr(local_id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
}
