// internal/app/store/posts/poststore.go
package poststore

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
	return &Store{c: db.Collection("posts")}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *Store) Create(ctx context.Context, p models.Post) (models.Post, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	// $addToSet and $push need arrays, not nulls.
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Post{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Post, error) {
	var p models.Post
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Post{}, err
	}
	return p, nil
}

// List returns posts newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a post. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ToggleLike adds userID to the post's likes, or removes it if present.
// Each direction is a single conditional update, so a user is never in the
// set twice.
func (s *Store) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (models.Post, error) {
	var p models.Post
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
		returnAfter).Decode(&p)
	if err != mongo.ErrNoDocuments {
		return p, err
	}
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		returnAfter).Decode(&p)
	return p, err
}

// AddComment appends c to the post.
func (s *Store) AddComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) (models.Post, error) {
	if c.Likes == nil {
		c.Likes = []primitive.ObjectID{}
	}
	var p models.Post
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": c}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		returnAfter).Decode(&p)
	return p, err
}

// RemoveComment pulls one comment. Returns mongo.ErrNoDocuments when the
// post or the comment is missing.
func (s *Store) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) (models.Post, error) {
	var p models.Post
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
		returnAfter).Decode(&p)
	return p, err
}

// ToggleCommentLike toggles userID in one comment's likes.
func (s *Store) ToggleCommentLike(ctx context.Context, postID, commentID, userID primitive.ObjectID) (models.Post, error) {
	var p models.Post
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "likes": bson.M{"$ne": userID}}}},
		bson.M{"$addToSet": bson.M{"comments.$.likes": userID}},
		returnAfter).Decode(&p)
	if err != mongo.ErrNoDocuments {
		return p, err
	}
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "likes": userID}}},
		bson.M{"$pull": bson.M{"comments.$.likes": userID}},
		returnAfter).Decode(&p)
	return p, err
}
