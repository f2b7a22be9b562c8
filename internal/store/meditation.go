package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/progresspoint/internal/model"
)

type MeditationStore struct {
	db *sql.DB
}

func NewMeditationStore(db *sql.DB) *MeditationStore {
	return &MeditationStore{db: db}
}

func scanTrack(scanner interface{ Scan(...any) error }) (*model.MeditationTrack, error) {
	var t model.MeditationTrack
	var duration sql.NullInt64
	if err := scanner.Scan(&t.ID, &t.Name, &t.URL, &duration, &t.Favorite); err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		t.Duration = &d
	}
	return &t, nil
}

const trackCols = `id, name, url, duration, favorite`

func (s *MeditationStore) ListTracks() ([]model.MeditationTrack, error) {
	rows, err := s.db.Query(`SELECT ` + trackCols + ` FROM meditation_tracks ORDER BY favorite DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []model.MeditationTrack
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func (s *MeditationStore) GetTrack(id int64) (*model.MeditationTrack, error) {
	t, err := scanTrack(s.db.QueryRow(`SELECT `+trackCols+` FROM meditation_tracks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return t, nil
}

func (s *MeditationStore) CreateSession(trackID *int64, duration int, completed bool) (*model.MeditationSession, error) {
	var tID sql.NullInt64
	if trackID != nil {
		tID = sql.NullInt64{Int64: *trackID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO meditation_sessions (track_id, duration, completed) VALUES (?, ?, ?)`,
		tID, duration, completed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert meditation session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var m model.MeditationSession
	var track sql.NullInt64
	err = s.db.QueryRow(
		`SELECT id, track_id, duration, completed, created_at FROM meditation_sessions WHERE id = ?`, id,
	).Scan(&m.ID, &track, &m.Duration, &m.Completed, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get meditation session: %w", err)
	}
	if track.Valid {
		m.TrackID = &track.Int64
	}
	return &m, nil
}
