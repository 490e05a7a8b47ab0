package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// FullName is the user's display name.
	FullName string `json:"fullName" bson:"full_name"`

	// Email is the user's email address. Uniqueness is enforced by a
	// unique index on the users collection.
	Email string `json:"email" bson:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password_hash"`

	// CreatedOn is the timestamp when the account was created.
	CreatedOn time.Time `json:"createdOn" bson:"created_on"`
}

// PublicUser is the user shape returned by register and login.
type PublicUser struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Public returns the externally visible fields of the user.
func (u User) Public() PublicUser {
	return PublicUser{FullName: u.FullName, Email: u.Email}
}
