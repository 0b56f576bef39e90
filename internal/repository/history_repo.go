package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessthetune/internal/model"
)

// HistoryRepo archives finished games. Live room state never touches
// this store.
type HistoryRepo interface {
	Insert(ctx context.Context, record *model.GameRecord) error
	ListRecent(ctx context.Context, limit int64) ([]model.GameRecord, error)
}

type historyRepo struct {
	collection *mongo.Collection
}

// NewHistoryRepo creates a Mongo-backed history repository.
func NewHistoryRepo(db *mongo.Database) HistoryRepo {
	return &historyRepo{
		collection: db.Collection("games"),
	}
}

func (r *historyRepo) Insert(ctx context.Context, record *model.GameRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *historyRepo) ListRecent(ctx context.Context, limit int64) ([]model.GameRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
