package types

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story is a user-owned journal entry stored in MongoDB.
type Story struct {
	// ID is the unique identifier of the story.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Title is the short headline of the entry.
	Title string `json:"title" bson:"title"`

	// Story is the narrative text.
	Story string `json:"story" bson:"story"`

	// VisitedLocation is the ordered list of location tags.
	VisitedLocation []string `json:"visitedLocation" bson:"visited_location"`

	// VisitedDate is when the trip happened. On the wire it is epoch
	// milliseconds; in the store it is a native date.
	VisitedDate time.Time `json:"visitedDate" bson:"visited_date"`

	// ImageURL points at the story photo, or the placeholder.
	ImageURL string `json:"imageUrl" bson:"image_url"`

	// IsFavourite marks the entry as a favourite. Favourites sort first
	// in every listing.
	IsFavourite bool `json:"isFavourite" bson:"is_favourite"`

	// UserID references the owning user. Every read, update, and delete
	// filters by (ID, UserID).
	UserID primitive.ObjectID `json:"userId" bson:"user_id"`

	// CreatedOn is the timestamp when the entry was created.
	CreatedOn time.Time `json:"createdOn" bson:"created_on"`
}

// MarshalJSON encodes VisitedDate as epoch milliseconds so a client can
// round-trip the value it submitted.
func (s Story) MarshalJSON() ([]byte, error) {
	type alias Story
	return json.Marshal(struct {
		alias
		VisitedDate int64 `json:"visitedDate"`
	}{
		alias:       alias(s),
		VisitedDate: s.VisitedDate.UnixMilli(),
	})
}

// UnmarshalJSON decodes VisitedDate from epoch milliseconds.
func (s *Story) UnmarshalJSON(data []byte) error {
	type alias Story
	aux := struct {
		*alias
		VisitedDate int64 `json:"visitedDate"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.VisitedDate = time.UnixMilli(aux.VisitedDate).UTC()
	return nil
}
