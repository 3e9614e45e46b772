package sync

import (
	"context"

	"voicepool/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	ListRecent(ctx context.Context, limit int64) ([]SyncRun, error)
}

type SyncRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncRepository(db *database.MongodbDB) SyncRepository {
	return &SyncRepositoryImpl{
		collection: db.DB.Collection("sync_runs"),
	}
}

func (r *SyncRepositoryImpl) Create(ctx context.Context, run *SyncRun) error {
	run.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *SyncRepositoryImpl) ListRecent(ctx context.Context, limit int64) ([]SyncRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []SyncRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []SyncRun{}
	}
	return runs, nil
}
