// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// expiredAt is the store form of models.Event.ExpiredAt.
func expiredAt(now time.Time) bson.M {
	return bson.M{"end": bson.M{"$lte": now}}
}

func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Delete removes an event by ID. Returns the number of documents deleted
// (0 or 1); deleting a missing event is not an error.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes every event, in any group, that has ended by now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, expiredAt(now))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpiredInGroups removes ended events belonging to groupIDs.
func (s *Store) DeleteExpiredInGroups(ctx context.Context, now time.Time, groupIDs []primitive.ObjectID) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	filter := expiredAt(now)
	filter["group_id"] = bson.M{"$in": groupIDs}
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByGroups returns the events of groupIDs ordered by start ascending.
func (s *Store) ListByGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]models.Event, error) {
	out := []models.Event{}
	if len(groupIDs) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": bson.M{"$in": groupIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByGroup removes all events of a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
