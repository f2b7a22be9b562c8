package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/progresspoint/internal/backup"
	"github.com/dukerupert/progresspoint/internal/handler"
	"github.com/dukerupert/progresspoint/internal/middleware"
	"github.com/dukerupert/progresspoint/internal/service"
	"github.com/dukerupert/progresspoint/internal/store"
	ws "github.com/dukerupert/progresspoint/internal/websocket"
)

// Backup triggers are expensive; allow a handful per client per window.
const (
	backupRateLimit  = 5
	backupRateWindow = time.Minute
)

type Options struct {
	Version        string
	Clock          service.Clock
	Backup         backup.Config
	AllowedOrigins []string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	taskH         *handler.TaskHandler
	habitH        *handler.HabitHandler
	sessionH      *handler.SessionHandler
	storyH        *handler.StoryHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	origins       []string
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(opts.Version, logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	habitStore := store.NewHabitStore(db)
	meditationStore := store.NewMeditationStore(db)
	studyStore := store.NewStudyStore(db)
	storyStore := store.NewStoryStore(db)
	backupStore := store.NewBackupStore(db)

	clock := opts.Clock
	if clock == nil {
		clock = service.SystemClock(time.Local)
	}

	backupMgr := backup.NewManager(opts.Backup, db, backupStore, func(s backup.Status) {
		hub.Publish(ws.TypeBackupStatus, s)
	}, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		taskH:         handler.NewTaskHandler(service.NewTaskService(taskStore, clock, logger.With("component", "task")), logger.With("component", "task")),
		habitH:        handler.NewHabitHandler(service.NewHabitService(habitStore, clock, logger.With("component", "habit")), logger.With("component", "habit")),
		sessionH:      handler.NewSessionHandler(service.NewSessionService(meditationStore, studyStore, logger.With("component", "session")), logger.With("component", "session")),
		storyH:        handler.NewStoryHandler(service.NewStoryService(storyStore), logger.With("component", "story")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		origins:       opts.AllowedOrigins,
		logger:        logger,
	}
}

// Hub returns the websocket hub so the caller can shut it down.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health(s.db))
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins))

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/replicate", s.taskH.Replicate)
	mux.HandleFunc("GET /api/tasks/stats/{date}", s.taskH.Stats)
	mux.HandleFunc("GET /api/tasks/streak", s.taskH.Streak)

	// Habits
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("GET /api/habits/{id}", s.habitH.Get)
	mux.HandleFunc("PUT /api/habits/{id}/check", s.habitH.Check)
	mux.HandleFunc("GET /api/habits/{id}/progress", s.habitH.Progress)
	mux.HandleFunc("GET /api/habits/{id}/checks", s.habitH.Checks)

	// Sessions
	mux.HandleFunc("GET /api/meditation/tracks", s.sessionH.ListTracks)
	mux.HandleFunc("POST /api/meditation/sessions", s.sessionH.LogMeditation)
	mux.HandleFunc("GET /api/study/sessions", s.sessionH.ListStudy)
	mux.HandleFunc("POST /api/study/sessions", s.sessionH.LogStudy)
	mux.HandleFunc("GET /api/study/techniques", s.sessionH.Techniques)

	// Stories; the literal favorites path outranks {id}.
	mux.HandleFunc("GET /api/stories", s.storyH.List)
	mux.HandleFunc("GET /api/stories/favorites", s.storyH.Favorites)
	mux.HandleFunc("GET /api/stories/{id}", s.storyH.Get)
	mux.HandleFunc("POST /api/stories/{id}/favorite", s.storyH.ToggleFavorite)

	// Backups
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.rateLimitedHandler(s.backupH.Run))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestLogger(httpLogger)(middleware.Recover(httpLogger)(mux))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, backupRateLimit, backupRateWindow)
	return rl(h).ServeHTTP
}
