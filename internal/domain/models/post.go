// internal/domain/models/post.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is an entry in the social feed. Likes is a set of user IDs.
type Post struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	AuthorID  primitive.ObjectID   `bson:"author_id" json:"author_id"`
	Content   string               `bson:"content" json:"content"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments  []Comment            `bson:"comments" json:"comments"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

// Comment is embedded in a Post.
type Comment struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	AuthorID  primitive.ObjectID   `bson:"author_id" json:"author_id"`
	Content   string               `bson:"content" json:"content"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
}

// HasLiked reports whether userID is in likes.
func HasLiked(likes []primitive.ObjectID, userID primitive.ObjectID) bool {
	for _, id := range likes {
		if id == userID {
			return true
		}
	}
	return false
}
