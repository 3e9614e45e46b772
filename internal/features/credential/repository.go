package credential

import (
	"context"
	"time"

	"voicepool/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByCredentialID(ctx context.Context, credentialID string) (*Credential, error)
	List(ctx context.Context, filter map[string]interface{}) ([]Credential, error)
	ListActive(ctx context.Context) ([]Credential, error)
	// ListSelectable returns active, non-over-capacity credentials with a
	// healthy or unknown status and spare agent capacity, ordered by
	// assigned_agent_count asc, assigned_user_count asc, created_at asc.
	ListSelectable(ctx context.Context, excludeCredentialID string) ([]Credential, error)
	Update(ctx context.Context, credentialID string, updates map[string]interface{}) error
	UpdateHealth(ctx context.Context, credentialID string, status HealthStatus, checkedAt time.Time) error
	// AdjustCounts applies counter deltas atomically on one document.
	AdjustCounts(ctx context.Context, credentialID string, agentDelta, userDelta int) error
	// SetCounts overwrites counters; used by reconciliation.
	SetCounts(ctx context.Context, credentialID string, agentCount, userCount int, overCapacity bool) error
	Delete(ctx context.Context, credentialID string) error
	EnsureIndexes(ctx context.Context) error
}

type CredentialRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCredentialRepository(db *database.MongodbDB) CredentialRepository {
	return &CredentialRepositoryImpl{
		collection: db.DB.Collection("credentials"),
	}
}

func (r *CredentialRepositoryImpl) Create(ctx context.Context, cred *Credential) error {
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	if cred.HealthStatus == "" {
		cred.HealthStatus = HealthUnknown
	}

	_, err := r.collection.InsertOne(ctx, cred)
	return err
}

func (r *CredentialRepositoryImpl) GetByCredentialID(ctx context.Context, credentialID string) (*Credential, error) {
	var cred Credential
	err := r.collection.FindOne(ctx, bson.M{"credential_id": credentialID}).Decode(&cred)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepositoryImpl) List(ctx context.Context, filter map[string]interface{}) ([]Credential, error) {
	if filter == nil {
		filter = map[string]interface{}{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var creds []Credential
	if err = cursor.All(ctx, &creds); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = []Credential{}
	}
	return creds, nil
}

func (r *CredentialRepositoryImpl) ListActive(ctx context.Context) ([]Credential, error) {
	return r.List(ctx, map[string]interface{}{"is_active": true})
}

func (r *CredentialRepositoryImpl) ListSelectable(ctx context.Context, excludeCredentialID string) ([]Credential, error) {
	filter := bson.M{
		"is_active":     true,
		"over_capacity": bson.M{"$ne": true},
		"health_status": bson.M{"$in": []string{string(HealthHealthy), string(HealthUnknown)}},
		"$expr":         bson.M{"$lt": bson.A{"$assigned_agent_count", "$max_resource_threshold"}},
	}
	if excludeCredentialID != "" {
		filter["credential_id"] = bson.M{"$ne": excludeCredentialID}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "assigned_agent_count", Value: 1},
		{Key: "assigned_user_count", Value: 1},
		{Key: "created_at", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var creds []Credential
	if err = cursor.All(ctx, &creds); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = []Credential{}
	}
	return creds, nil
}

func (r *CredentialRepositoryImpl) Update(ctx context.Context, credentialID string, updates map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"credential_id": credentialID}, bson.M{"$set": set})
	return err
}

func (r *CredentialRepositoryImpl) UpdateHealth(ctx context.Context, credentialID string, status HealthStatus, checkedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"health_status":        status,
			"last_health_check_at": checkedAt,
			"updated_at":           time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"credential_id": credentialID}, update)
	return err
}

func (r *CredentialRepositoryImpl) AdjustCounts(ctx context.Context, credentialID string, agentDelta, userDelta int) error {
	update := bson.M{
		"$inc": bson.M{
			"assigned_agent_count": agentDelta,
			"assigned_user_count":  userDelta,
		},
		"$set": bson.M{"updated_at": time.Now()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"credential_id": credentialID}, update)
	return err
}

func (r *CredentialRepositoryImpl) SetCounts(ctx context.Context, credentialID string, agentCount, userCount int, overCapacity bool) error {
	update := bson.M{
		"$set": bson.M{
			"assigned_agent_count": agentCount,
			"assigned_user_count":  userCount,
			"over_capacity":        overCapacity,
			"updated_at":           time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"credential_id": credentialID}, update)
	return err
}

func (r *CredentialRepositoryImpl) Delete(ctx context.Context, credentialID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"credential_id": credentialID})
	return err
}

func (r *CredentialRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "credential_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "health_status", Value: 1}},
		},
	})
	return err
}
