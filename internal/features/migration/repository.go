package migration

import (
	"context"
	"time"

	"voicepool/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *MigrationAttempt) error
	GetByID(ctx context.Context, id string) (*MigrationAttempt, error)
	Update(ctx context.Context, attempt *MigrationAttempt) error
	// ListReplayable returns failed attempts still under the retry budget,
	// oldest first, bounded by limit.
	ListReplayable(ctx context.Context, maxAttempts int, limit int64) ([]MigrationAttempt, error)
	// SupersedeOlder marks every replayable attempt for the resource
	// created before the given attempt as superseded.
	SupersedeOlder(ctx context.Context, resourceID string, newerThan primitive.ObjectID) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// OldestReplayable returns the creation time of the oldest attempt
	// still in the queue, or nil when the queue is empty.
	OldestReplayable(ctx context.Context, maxAttempts int) (*time.Time, error)
	List(ctx context.Context, filter map[string]interface{}, limit int64) ([]MigrationAttempt, error)
}

type AttemptRepositoryImpl struct {
	collection *mongo.Collection
}

func NewAttemptRepository(db *database.MongodbDB) AttemptRepository {
	return &AttemptRepositoryImpl{
		collection: db.DB.Collection("migration_attempts"),
	}
}

func (r *AttemptRepositoryImpl) Create(ctx context.Context, attempt *MigrationAttempt) error {
	attempt.ID = primitive.NewObjectID()
	now := time.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, attempt)
	return err
}

func (r *AttemptRepositoryImpl) GetByID(ctx context.Context, id string) (*MigrationAttempt, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var attempt MigrationAttempt
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&attempt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepositoryImpl) Update(ctx context.Context, attempt *MigrationAttempt) error {
	attempt.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": attempt.ID}, bson.M{"$set": attempt})
	return err
}

func replayableFilter(maxAttempts int) bson.M {
	return bson.M{
		"status":        StatusFailed,
		"attempt_count": bson.M{"$lt": maxAttempts},
	}
}

func (r *AttemptRepositoryImpl) ListReplayable(ctx context.Context, maxAttempts int, limit int64) ([]MigrationAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, replayableFilter(maxAttempts), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []MigrationAttempt
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []MigrationAttempt{}
	}
	return attempts, nil
}

func (r *AttemptRepositoryImpl) SupersedeOlder(ctx context.Context, resourceID string, newerThan primitive.ObjectID) error {
	filter := bson.M{
		"resource_id": resourceID,
		"_id":         bson.M{"$ne": newerThan},
		"status":      bson.M{"$in": []AttemptStatus{StatusPending, StatusFailed}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     StatusSuperseded,
			"updated_at": time.Now(),
		},
	}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

func (r *AttemptRepositoryImpl) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

func (r *AttemptRepositoryImpl) OldestReplayable(ctx context.Context, maxAttempts int) (*time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var attempt MigrationAttempt
	err := r.collection.FindOne(ctx, replayableFilter(maxAttempts), opts).Decode(&attempt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &attempt.CreatedAt, nil
}

func (r *AttemptRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit int64) ([]MigrationAttempt, error) {
	if filter == nil {
		filter = map[string]interface{}{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var attempts []MigrationAttempt
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []MigrationAttempt{}
	}
	return attempts, nil
}
