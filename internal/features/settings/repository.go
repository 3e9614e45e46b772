package settings

import (
	"context"
	"time"

	"voicepool/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

type SettingsRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *database.MongodbDB) SettingsRepository {
	return &SettingsRepositoryImpl{
		collection: db.DB.Collection("pool_settings"),
	}
}

func (r *SettingsRepositoryImpl) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Defaults when nothing has been saved yet
			return &Settings{DriftSweepEnabled: false}, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepositoryImpl) Upsert(ctx context.Context, s *Settings) error {
	s.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"selection_script":      s.SelectionScript,
			"drift_sweep_enabled":   s.DriftSweepEnabled,
			"max_attempts_override": s.MaxAttemptsOverride,
			"updated_at":            s.UpdatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{}, update, opts)
	return err
}
