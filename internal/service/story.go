package service

import (
	"context"
	"strings"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/store"
)

type StoryService struct {
	stories *store.StoryStore
}

func NewStoryService(ss *store.StoryStore) *StoryService {
	return &StoryService{stories: ss}
}

func (s *StoryService) List(ctx context.Context, search string) ([]model.Story, error) {
	stories, err := s.stories.List(strings.TrimSpace(search))
	if err != nil {
		return nil, storage("list stories", err)
	}
	if stories == nil {
		stories = []model.Story{}
	}
	return stories, nil
}

func (s *StoryService) Get(ctx context.Context, id int64) (*model.Story, error) {
	story, err := s.stories.GetByID(id)
	if err != nil {
		return nil, storage("get story", err)
	}
	if story == nil {
		return nil, &NotFoundError{Entity: "story", ID: id}
	}
	return story, nil
}

// ToggleFavorite flips the favorite flag. An unknown id is not an error.
func (s *StoryService) ToggleFavorite(ctx context.Context, id int64) error {
	if err := s.stories.ToggleFavorite(id); err != nil {
		return storage("toggle favorite", err)
	}
	return nil
}

func (s *StoryService) Favorites(ctx context.Context) ([]model.Story, error) {
	stories, err := s.stories.ListFavorites()
	if err != nil {
		return nil, storage("list favorite stories", err)
	}
	if stories == nil {
		stories = []model.Story{}
	}
	return stories, nil
}
