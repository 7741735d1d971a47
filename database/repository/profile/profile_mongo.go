package profileRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"educonnect/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoProfileRepo implements ProfileRepository using MongoDB.
type MongoProfileRepo struct {
	coll *mongo.Collection
}

// NewMongoProfileRepo creates a ProfileRepository over database.collection.
func NewMongoProfileRepo(client *mongo.Client, database, collection string, logger *zap.Logger) ProfileRepository {
	coll := client.Database(database).Collection(collection)
	repo := &MongoProfileRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil && logger != nil {
		logger.Warn("failed to create profile indexes", zap.Error(err))
	}
	return repo
}

// ensureIndexes creates the unique indexes profiles are looked up by.
func (r *MongoProfileRepo) ensureIndexes() error {
	ctx, cancel := withTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoProfileRepo) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	var profile models.UserProfile
	if err := r.coll.FindOne(ctx, bson.M{"id": uid}).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile %s: %w", uid, err)
	}
	return &profile, nil
}

func (r *MongoProfileRepo) UpsertProfile(ctx context.Context, uid string, patch models.ProfilePatch, now time.Time) (*models.UserProfile, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updatedAt": now}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"id": uid, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var profile models.UserProfile
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": uid}, update, opts).Decode(&profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: profile %s: email already stored for another account", ErrStoreWrite, uid)
		}
		return nil, fmt.Errorf("%w: profile %s: %v", ErrStoreWrite, uid, err)
	}
	return &profile, nil
}

func (r *MongoProfileRepo) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.coll.Database().Client().Ping(ctx, nil)
}
