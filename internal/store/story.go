package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lovestory/apiserver/types"
)

// StoryRepository handles persistence for stories. Every lookup, update,
// and delete filters by (id, owner); list-style queries return favourites
// before non-favourites.
type StoryRepository struct {
	col *mongo.Collection
}

func NewStoryRepository(database *mongo.Database) *StoryRepository {
	return &StoryRepository{col: database.Collection("stories")}
}

func favouritesFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "is_favourite", Value: -1}})
}

func (r *StoryRepository) Create(ctx context.Context, story types.Story) (types.Story, error) {
	story.ID = primitive.NewObjectID()
	story.CreatedOn = time.Now()

	if _, err := r.col.InsertOne(ctx, story); err != nil {
		return types.Story{}, err
	}
	return story, nil
}

func (r *StoryRepository) Get(ctx context.Context, id string, ownerID primitive.ObjectID) (types.Story, error) {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return types.Story{}, err
	}

	var story types.Story
	if err := r.col.FindOne(ctx, filter).Decode(&story); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Story{}, ErrNotFound
		}
		return types.Story{}, err
	}
	return story, nil
}

func (r *StoryRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]types.Story, error) {
	return r.find(ctx, bson.M{"user_id": ownerID})
}

// Search returns the owner's stories whose title, narrative, or locations
// contain the query, case-insensitively.
func (r *StoryRepository) Search(ctx context.Context, ownerID primitive.ObjectID, query string) ([]types.Story, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return r.find(ctx, bson.M{
		"user_id": ownerID,
		"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"story": pattern},
			bson.M{"visited_location": pattern},
		},
	})
}

// FilterByDate returns the owner's stories with visitedDate in [start, end].
func (r *StoryRepository) FilterByDate(ctx context.Context, ownerID primitive.ObjectID, start, end time.Time) ([]types.Story, error) {
	return r.find(ctx, bson.M{
		"user_id":      ownerID,
		"visited_date": bson.M{"$gte": start, "$lte": end},
	})
}

// Update replaces the mutable fields of an owned story and returns the
// updated record.
func (r *StoryRepository) Update(ctx context.Context, id string, ownerID primitive.ObjectID, story types.Story) (types.Story, error) {
	return r.findOneAndUpdate(ctx, id, ownerID, bson.M{"$set": bson.M{
		"title":            story.Title,
		"story":            story.Story,
		"visited_location": story.VisitedLocation,
		"visited_date":     story.VisitedDate,
		"image_url":        story.ImageURL,
	}})
}

// SetFavourite flips the favourite flag of an owned story and returns the
// updated record.
func (r *StoryRepository) SetFavourite(ctx context.Context, id string, ownerID primitive.ObjectID, isFavourite bool) (types.Story, error) {
	return r.findOneAndUpdate(ctx, id, ownerID, bson.M{"$set": bson.M{
		"is_favourite": isFavourite,
	}})
}

func (r *StoryRepository) Delete(ctx context.Context, id string, ownerID primitive.ObjectID) error {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return err
	}

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StoryRepository) find(ctx context.Context, filter bson.M) ([]types.Story, error) {
	cur, err := r.col.Find(ctx, filter, favouritesFirst())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var stories []types.Story
	if err := cur.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *StoryRepository) findOneAndUpdate(ctx context.Context, id string, ownerID primitive.ObjectID, update bson.M) (types.Story, error) {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return types.Story{}, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var story types.Story
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&story); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Story{}, ErrNotFound
		}
		return types.Story{}, err
	}
	return story, nil
}

// ownedFilter builds the (id, owner) filter shared by every single-story
// operation. A malformed id behaves like a missing record.
func ownedFilter(id string, ownerID primitive.ObjectID) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return bson.M{"_id": oid, "user_id": ownerID}, nil
}
