// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered student.
//
// NOTE:
//   - Group membership is not embedded on User.
//     A user's groups are the groups whose members array contains the user ID.
//   - Username and email are unique through their case-folded *_ci copies.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	UsernameCI     string             `bson:"username_ci" json:"-"`
	Email          string             `bson:"email" json:"email"`
	EmailCI        string             `bson:"email_ci" json:"-"`
	PasswordHash   string             `bson:"password_hash" json:"-"`
	Bio            string             `bson:"bio" json:"bio"`
	ProfilePicture string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the public identity attached to messages, events and posts.
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Username       string             `bson:"username" json:"username"`
	ProfilePicture string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
}

// Summary returns the public identity of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// DeletedUsername stands in for authors whose account no longer exists.
const DeletedUsername = "[deleted]"

// LookupSummary returns the summary for id, or a placeholder carrying id
// when the user is unknown.
func LookupSummary(summaries map[primitive.ObjectID]UserSummary, id primitive.ObjectID) UserSummary {
	if s, ok := summaries[id]; ok {
		return s
	}
	return UserSummary{ID: id, Username: DeletedUsername}
}
