package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

// ErrNotFound is returned when a stored object does not exist for the
// caller.
var ErrNotFound = errors.New("not found")

// MongoArchive keeps snapshots of generated meal plans per user.
type MongoArchive struct {
	col *mongo.Collection
}

func NewMongoArchive(db *mongo.Database) *MongoArchive {
	return &MongoArchive{col: db.Collection("generated_plans")}
}

// EnsureIndexes creates the (user_id, archived_at) index used by Recent.
func (s *MongoArchive) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "archived_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *MongoArchive) Save(ctx context.Context, plan models.MealPlan) (string, error) {
	doc := models.ArchivedPlan{
		UserID:     plan.UserID,
		Goal:       plan.Goal,
		Plan:       plan,
		ArchivedAt: time.Now().UTC(),
	}
	res, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	return oid.Hex(), nil
}

// Recent returns up to limit snapshots for userID, newest first.
func (s *MongoArchive) Recent(ctx context.Context, userID string, limit int64) ([]models.ArchivedPlan, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "archived_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.ArchivedPlan
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes one of userID's snapshots. Unknown ids, and ids owned by
// another user, give ErrNotFound.
func (s *MongoArchive) Delete(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
