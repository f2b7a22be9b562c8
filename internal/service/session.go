package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/store"
	"github.com/dukerupert/progresspoint/internal/study"
)

// StudySessionLimit caps ListStudySessions.
const StudySessionLimit = 50

type SessionService struct {
	meditation *store.MeditationStore
	study      *store.StudyStore
	logger     *slog.Logger
}

func NewSessionService(ms *store.MeditationStore, ss *store.StudyStore, logger *slog.Logger) *SessionService {
	return &SessionService{meditation: ms, study: ss, logger: logger}
}

type NewMeditationSession struct {
	TrackID   *int64 `json:"track_id"`
	Duration  int    `json:"duration"`
	Completed bool   `json:"completed"`
}

type NewStudySession struct {
	Technique string `json:"technique"`
	Duration  int    `json:"duration"`
	Completed bool   `json:"completed"`
}

func (s *SessionService) ListTracks(ctx context.Context) ([]model.MeditationTrack, error) {
	tracks, err := s.meditation.ListTracks()
	if err != nil {
		return nil, storage("list tracks", err)
	}
	if tracks == nil {
		tracks = []model.MeditationTrack{}
	}
	return tracks, nil
}

func (s *SessionService) LogMeditation(ctx context.Context, in NewMeditationSession) (*model.MeditationSession, error) {
	if in.Duration < 0 {
		return nil, invalid("duration", "cannot be negative")
	}
	if in.TrackID != nil {
		track, err := s.meditation.GetTrack(*in.TrackID)
		if err != nil {
			return nil, storage("get track", err)
		}
		if track == nil {
			return nil, &NotFoundError{Entity: "track", ID: *in.TrackID}
		}
	}

	m, err := s.meditation.CreateSession(in.TrackID, in.Duration, in.Completed)
	if err != nil {
		return nil, storage("log meditation", err)
	}
	s.logger.DebugContext(ctx, "meditation logged", "id", m.ID, "duration", m.Duration)
	return m, nil
}

func (s *SessionService) ListStudySessions(ctx context.Context) ([]model.StudySession, error) {
	sessions, err := s.study.ListSessions(StudySessionLimit)
	if err != nil {
		return nil, storage("list study sessions", err)
	}
	if sessions == nil {
		sessions = []model.StudySession{}
	}
	return sessions, nil
}

func (s *SessionService) LogStudy(ctx context.Context, in NewStudySession) (*model.StudySession, error) {
	technique := strings.TrimSpace(in.Technique)
	if technique == "" {
		return nil, invalid("technique", "is required")
	}
	if in.Duration < 0 {
		return nil, invalid("duration", "cannot be negative")
	}

	ss, err := s.study.CreateSession(technique, in.Duration, in.Completed)
	if err != nil {
		return nil, storage("log study session", err)
	}
	s.logger.DebugContext(ctx, "study session logged", "id", ss.ID, "technique", ss.Technique)
	return ss, nil
}

// Techniques returns the built-in study technique catalog.
func (s *SessionService) Techniques() []study.Technique {
	return study.Catalog()
}
