package model

import "time"

type MeditationTrack struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Duration *int   `json:"duration"`
	Favorite bool   `json:"favorite"`
}

// MeditationSession records seconds actually meditated against a track.
type MeditationSession struct {
	ID        int64     `json:"id"`
	TrackID   *int64    `json:"track_id"`
	Duration  int       `json:"duration"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

type StudySession struct {
	ID        int64     `json:"id"`
	Technique string    `json:"technique"`
	Duration  int       `json:"duration"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}
