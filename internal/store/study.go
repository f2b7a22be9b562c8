package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/progresspoint/internal/model"
)

type StudyStore struct {
	db *sql.DB
}

func NewStudyStore(db *sql.DB) *StudyStore {
	return &StudyStore{db: db}
}

func scanStudySession(scanner interface{ Scan(...any) error }) (*model.StudySession, error) {
	var s model.StudySession
	if err := scanner.Scan(&s.ID, &s.Technique, &s.Duration, &s.Completed, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

const studyCols = `id, technique, duration, completed, created_at`

// ListSessions returns at most limit sessions, newest first.
func (s *StudyStore) ListSessions(limit int) ([]model.StudySession, error) {
	rows, err := s.db.Query(
		`SELECT `+studyCols+` FROM study_sessions ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.StudySession
	for rows.Next() {
		ss, err := scanStudySession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study session: %w", err)
		}
		sessions = append(sessions, *ss)
	}
	return sessions, rows.Err()
}

func (s *StudyStore) CreateSession(technique string, duration int, completed bool) (*model.StudySession, error) {
	result, err := s.db.Exec(
		`INSERT INTO study_sessions (technique, duration, completed) VALUES (?, ?, ?)`,
		technique, duration, completed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert study session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	ss, err := scanStudySession(s.db.QueryRow(`SELECT `+studyCols+` FROM study_sessions WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get study session: %w", err)
	}
	return ss, nil
}
