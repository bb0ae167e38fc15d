// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a calendar entry scoped to a group.
// Expired events (End <= now) are deleted rather than flagged.
type Event struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Start       time.Time          `bson:"start" json:"start"`
	End         time.Time          `bson:"end" json:"end"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// ExpiredAt reports whether the event has ended as of now.
// Every expiry path (lazy listing, background sweep) uses this predicate
// or its store equivalent {end: {$lte: now}}.
func (e Event) ExpiredAt(now time.Time) bool {
	return !e.End.After(now)
}
