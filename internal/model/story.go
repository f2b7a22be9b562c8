package model

import "time"

type Story struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	PersonName string    `json:"person_name"`
	Content    string    `json:"content"`
	Favorite   bool      `json:"favorite"`
	CreatedAt  time.Time `json:"created_at"`
}
