// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsMember reports whether userID is in the group's member set.
// It only inspects the already-loaded group; callers fetch it first.
func IsMember(g models.Group, userID primitive.ObjectID) bool {
	if userID.IsZero() {
		return false
	}
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// IsCreator reports whether userID created the group.
func IsCreator(g models.Group, userID primitive.ObjectID) bool {
	return !userID.IsZero() && g.CreatorID == userID
}

// CanDeleteMessage reports whether userID may delete m.
// Only the author may; group membership or ownership does not grant it.
func CanDeleteMessage(m models.Message, userID primitive.ObjectID) bool {
	return !userID.IsZero() && m.AuthorID == userID
}

// CanDeleteEvent reports whether userID may delete e (its creator only).
func CanDeleteEvent(e models.Event, userID primitive.ObjectID) bool {
	return !userID.IsZero() && e.CreatorID == userID
}
