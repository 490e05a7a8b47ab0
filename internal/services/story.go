package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lovestory/apiserver/types"
)

// StoryRepository defines persistence operations for stories. All methods
// are owner-scoped; list-style results come back favourites-first.
type StoryRepository interface {
	Create(ctx context.Context, story types.Story) (types.Story, error)
	Get(ctx context.Context, id string, ownerID primitive.ObjectID) (types.Story, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]types.Story, error)
	Search(ctx context.Context, ownerID primitive.ObjectID, query string) ([]types.Story, error)
	FilterByDate(ctx context.Context, ownerID primitive.ObjectID, start, end time.Time) ([]types.Story, error)
	Update(ctx context.Context, id string, ownerID primitive.ObjectID, story types.Story) (types.Story, error)
	SetFavourite(ctx context.Context, id string, ownerID primitive.ObjectID, isFavourite bool) (types.Story, error)
	Delete(ctx context.Context, id string, ownerID primitive.ObjectID) error
}

// StoryService encapsulates story use-cases.
type StoryService struct {
	repo StoryRepository
}

func NewStoryService(repo StoryRepository) *StoryService {
	return &StoryService{repo: repo}
}

func (s *StoryService) Create(ctx context.Context, story types.Story) (types.Story, error) {
	return s.repo.Create(ctx, story)
}

func (s *StoryService) Get(ctx context.Context, id string, ownerID primitive.ObjectID) (types.Story, error) {
	return s.repo.Get(ctx, id, ownerID)
}

func (s *StoryService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]types.Story, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *StoryService) Search(ctx context.Context, ownerID primitive.ObjectID, query string) ([]types.Story, error) {
	return s.repo.Search(ctx, ownerID, query)
}

func (s *StoryService) FilterByDate(ctx context.Context, ownerID primitive.ObjectID, start, end time.Time) ([]types.Story, error) {
	return s.repo.FilterByDate(ctx, ownerID, start, end)
}

func (s *StoryService) Update(ctx context.Context, id string, ownerID primitive.ObjectID, story types.Story) (types.Story, error) {
	return s.repo.Update(ctx, id, ownerID, story)
}

func (s *StoryService) SetFavourite(ctx context.Context, id string, ownerID primitive.ObjectID, isFavourite bool) (types.Story, error) {
	return s.repo.SetFavourite(ctx, id, ownerID, isFavourite)
}

func (s *StoryService) Delete(ctx context.Context, id string, ownerID primitive.ObjectID) error {
	return s.repo.Delete(ctx, id, ownerID)
}
