// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// withoutMessages keeps listing and summary reads from loading the
// embedded message board.
var withoutMessages = bson.M{"messages": 0}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// GetByID loads the full group, including its messages.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// GetSummary loads a group without its messages.
func (s *Store) GetSummary(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	opts := options.FindOne().SetProjection(withoutMessages)
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.Members == nil {
		g.Members = []primitive.ObjectID{}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = g.CreatedAt
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ListFilter narrows List. Zero fields are ignored.
type ListFilter struct {
	Category string
	MemberID primitive.ObjectID
}

// List returns group summaries, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Group, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if !f.MemberID.IsZero() {
		filter["members"] = f.MemberID
	}
	opts := options.Find().
		SetProjection(withoutMessages).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InfoUpdate lists editable group fields; nil fields are left as is.
type InfoUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Icon        *string
}

// UpdateInfo applies upd and returns the updated summary.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, upd InfoUpdate) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
		set["name_ci"] = text.Fold(*upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Icon != nil {
		set["icon"] = *upd.Icon
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// AddMember adds userID to the member set. Adding an existing member is a
// no-op.
func (s *Store) AddMember(ctx context.Context, id, userID primitive.ObjectID) (models.Group, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"members": userID}})
}

// RemoveMember removes userID from the member set. The creator is never
// removed: a group whose creator is userID does not match.
func (s *Store) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (models.Group, error) {
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": id, "creator_id": bson.M{"$ne": userID}},
		bson.M{"$pull": bson.M{"members": userID}})
}

// AppendMessage atomically pushes m onto the group's message board.
// Returns mongo.ErrNoDocuments if the group does not exist.
func (s *Store) AppendMessage(ctx context.Context, groupID primitive.ObjectID, m models.Message) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": groupID}, bson.M{"$push": bson.M{"messages": m}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveMessage atomically pulls one message and returns the updated group
// with its remaining messages. Returns mongo.ErrNoDocuments when the group
// or the message is missing.
func (s *Store) RemoveMessage(ctx context.Context, groupID, messageID primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": groupID, "messages._id": messageID},
		bson.M{"$pull": bson.M{"messages": bson.M{"_id": messageID}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&g)
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Delete removes the group and returns the deleted document, messages
// included, so callers can clean up attachment files.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (models.Group, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutMessages)
	var g models.Group
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}
