package resource

import (
	"context"
	"time"

	"voicepool/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResourceRepository interface {
	Create(ctx context.Context, res *Resource) error
	GetByResourceID(ctx context.Context, resourceID string) (*Resource, error)
	List(ctx context.Context, filter map[string]interface{}) ([]Resource, error)
	ListByCredential(ctx context.Context, credentialID string) ([]Resource, error)
	ListAgentsByOwner(ctx context.Context, ownerID string) ([]Resource, error)
	// UpdateAssignment moves a resource's remote address in one update;
	// remoteID and credential change together or not at all.
	UpdateAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error
	CountByCredential(ctx context.Context, credentialID string) (int64, error)
	CountByOwnerAndCredential(ctx context.Context, ownerID, credentialID string) (int64, error)
	Delete(ctx context.Context, resourceID string) error
	EnsureIndexes(ctx context.Context) error
}

type ConnectionRepository interface {
	Create(ctx context.Context, conn *Connection) error
	List(ctx context.Context) ([]Connection, error)
	GetByPhoneNumber(ctx context.Context, phoneNumberID string) (*Connection, error)
	ListByAgent(ctx context.Context, agentID string) ([]Connection, error)
	Delete(ctx context.Context, phoneNumberID string) error
}

type ResourceRepositoryImpl struct {
	collection *mongo.Collection
}

func NewResourceRepository(db *database.MongodbDB) ResourceRepository {
	return &ResourceRepositoryImpl{
		collection: db.DB.Collection("resources"),
	}
}

func (r *ResourceRepositoryImpl) Create(ctx context.Context, res *Resource) error {
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, res)
	return err
}

func (r *ResourceRepositoryImpl) GetByResourceID(ctx context.Context, resourceID string) (*Resource, error) {
	var res Resource
	err := r.collection.FindOne(ctx, bson.M{"resource_id": resourceID}).Decode(&res)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResourceRepositoryImpl) List(ctx context.Context, filter map[string]interface{}) ([]Resource, error) {
	if filter == nil {
		filter = map[string]interface{}{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resources []Resource
	if err = cursor.All(ctx, &resources); err != nil {
		return nil, err
	}
	if resources == nil {
		resources = []Resource{}
	}
	return resources, nil
}

func (r *ResourceRepositoryImpl) ListByCredential(ctx context.Context, credentialID string) ([]Resource, error) {
	return r.List(ctx, map[string]interface{}{"assigned_credential_id": credentialID})
}

func (r *ResourceRepositoryImpl) ListAgentsByOwner(ctx context.Context, ownerID string) ([]Resource, error) {
	return r.List(ctx, map[string]interface{}{
		"owner_id": ownerID,
		"kind":     KindAgent,
	})
}

func (r *ResourceRepositoryImpl) UpdateAssignment(ctx context.Context, resourceID, credentialID, remoteID string) error {
	update := bson.M{
		"$set": bson.M{
			"assigned_credential_id": credentialID,
			"remote_id":              remoteID,
			"updated_at":             time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"resource_id": resourceID}, update)
	return err
}

func (r *ResourceRepositoryImpl) CountByCredential(ctx context.Context, credentialID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"assigned_credential_id": credentialID})
}

func (r *ResourceRepositoryImpl) CountByOwnerAndCredential(ctx context.Context, ownerID, credentialID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"owner_id":               ownerID,
		"assigned_credential_id": credentialID,
	})
}

func (r *ResourceRepositoryImpl) Delete(ctx context.Context, resourceID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"resource_id": resourceID})
	return err
}

func (r *ResourceRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "resource_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "assigned_credential_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "kind", Value: 1}},
		},
	})
	return err
}

type ConnectionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewConnectionRepository(db *database.MongodbDB) ConnectionRepository {
	return &ConnectionRepositoryImpl{
		collection: db.DB.Collection("connections"),
	}
}

func (r *ConnectionRepositoryImpl) Create(ctx context.Context, conn *Connection) error {
	conn.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, conn)
	return err
}

func (r *ConnectionRepositoryImpl) List(ctx context.Context) ([]Connection, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conns []Connection
	if err = cursor.All(ctx, &conns); err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []Connection{}
	}
	return conns, nil
}

func (r *ConnectionRepositoryImpl) GetByPhoneNumber(ctx context.Context, phoneNumberID string) (*Connection, error) {
	var conn Connection
	err := r.collection.FindOne(ctx, bson.M{"phone_number_id": phoneNumberID}).Decode(&conn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *ConnectionRepositoryImpl) ListByAgent(ctx context.Context, agentID string) ([]Connection, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"agent_id": agentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conns []Connection
	if err = cursor.All(ctx, &conns); err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []Connection{}
	}
	return conns, nil
}

func (r *ConnectionRepositoryImpl) Delete(ctx context.Context, phoneNumberID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"phone_number_id": phoneNumberID})
	return err
}
