package store

import (
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dukerupert/progresspoint/internal/model"
)

type StoryStore struct {
	db *sql.DB
}

func NewStoryStore(db *sql.DB) *StoryStore {
	return &StoryStore{db: db}
}

func scanStory(scanner interface{ Scan(...any) error }) (*model.Story, error) {
	var st model.Story
	if err := scanner.Scan(&st.ID, &st.Title, &st.PersonName, &st.Content, &st.Favorite, &st.CreatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

const storyCols = `id, title, person_name, content, favorite, created_at`

// List returns stories favorites first, then newest first. A non-empty
// search matches title, person name or content under Unicode case folding,
// which SQLite's LIKE only does for ASCII.
func (s *StoryStore) List(search string) ([]model.Story, error) {
	rows, err := s.db.Query(`SELECT ` + storyCols + ` FROM stories ORDER BY favorite DESC, created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories, err := collectStories(rows)
	if err != nil || search == "" {
		return stories, err
	}

	fold := cases.Fold()
	term := fold.String(search)
	matched := stories[:0]
	for _, st := range stories {
		if strings.Contains(fold.String(st.Title), term) ||
			strings.Contains(fold.String(st.PersonName), term) ||
			strings.Contains(fold.String(st.Content), term) {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

func (s *StoryStore) ListFavorites() ([]model.Story, error) {
	rows, err := s.db.Query(`SELECT ` + storyCols + ` FROM stories WHERE favorite = 1 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list favorite stories: %w", err)
	}
	return collectStories(rows)
}

func collectStories(rows *sql.Rows) ([]model.Story, error) {
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, *st)
	}
	return stories, rows.Err()
}

func (s *StoryStore) GetByID(id int64) (*model.Story, error) {
	st, err := scanStory(s.db.QueryRow(`SELECT `+storyCols+` FROM stories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return st, nil
}

// ToggleFavorite flips the favorite flag. Unknown ids are ignored.
func (s *StoryStore) ToggleFavorite(id int64) error {
	_, err := s.db.Exec(`UPDATE stories SET favorite = 1 - favorite WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("toggle favorite: %w", err)
	}
	return nil
}
