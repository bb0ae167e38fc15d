// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group categories.
const (
	CategoryMathematics = "Mathematics"
	CategoryProgramming = "Programming"
	CategoryLiterature  = "Literature"
	CategoryScience     = "Science"
	CategoryHistory     = "History"
)

// GroupCategories is the fixed set of allowed group categories.
var GroupCategories = []string{
	CategoryMathematics,
	CategoryProgramming,
	CategoryLiterature,
	CategoryScience,
	CategoryHistory,
}

// GroupIcons is the fixed set of allowed group icon identifiers.
var GroupIcons = []string{
	"book",
	"calculator",
	"code",
	"flask",
	"globe",
	"landmark",
	"lightbulb",
	"pencil",
}

// Group is a study group.
//
// NOTE:
//   - Members are embedded as user IDs; CreatorID is always one of them.
//   - Messages are embedded and only ever changed with $push/$pull so
//     concurrent posts never overwrite each other.
//   - Events are NOT embedded; they live in the events collection keyed by group_id.
type Group struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Name        string               `bson:"name" json:"name"`
	NameCI      string               `bson:"name_ci" json:"-"`
	Description string               `bson:"description" json:"description"`
	Category    string               `bson:"category" json:"category"`
	Icon        string               `bson:"icon" json:"icon"`
	CreatorID   primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	Messages    []Message            `bson:"messages,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Message is a post on a group's discussion board.
// Content may be empty only when at least one attachment is present.
type Message struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Attachment references a file held by the file store.
type Attachment struct {
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name" json:"name"`
}
