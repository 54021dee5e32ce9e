package repository

import (
	"context"
	"fmt"
	"time"

	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/infrastructure/repository/entity"
	"catalog-sync-engine/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConnectionRepository implements ConnectionRepository using MongoDB
type MongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new MongoDB connection repository
func NewMongoConnectionRepository(db *mongo.Database) *MongoConnectionRepository {
	return &MongoConnectionRepository{
		collection: db.Collection("connections"),
	}
}

var _ ports.ConnectionRepository = (*MongoConnectionRepository)(nil)

// EnsureIndexes creates the unique index backing the one-connection-per-
// business invariant.
func (r *MongoConnectionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "businessId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create connection indexes: %w", err)
	}
	return nil
}

// GetByBusiness retrieves a connection by business id
func (r *MongoConnectionRepository) GetByBusiness(ctx context.Context, businessID string) (*domain.Connection, error) {
	var doc entity.MongoConnectionDoc
	err := r.collection.FindOne(ctx, bson.M{"businessId": businessID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return doc.ToDomain(), nil
}

// Save upserts a connection keyed by business id and returns the record id.
// A reconnect overwrites shop, credential and scopes in place; the sync
// bookkeeping fields survive untouched.
func (r *MongoConnectionRepository) Save(ctx context.Context, conn *domain.Connection) (string, error) {
	now := time.Now()

	var existing entity.MongoConnectionDoc
	err := r.collection.FindOne(ctx, bson.M{"businessId": conn.BusinessID}).Decode(&existing)
	if err == nil {
		update := bson.M{"$set": bson.M{
			"shopDomain":  conn.ShopDomain,
			"accessToken": conn.AccessToken,
			"scopes":      conn.Scopes,
			"updatedAt":   now,
		}}
		if _, err := r.collection.UpdateByID(ctx, existing.ID, update); err != nil {
			return "", fmt.Errorf("failed to overwrite connection: %w", err)
		}
		return existing.ID.Hex(), nil
	}
	if err != mongo.ErrNoDocuments {
		return "", fmt.Errorf("failed to look up connection: %w", err)
	}

	doc := entity.MongoConnectionDocFromDomain(conn)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert connection: %w", err)
	}
	return doc.ID.Hex(), nil
}

// UpdateSyncStatus patches the last-sync bookkeeping. Matching zero
// documents is not an error: status is only recorded for an active link.
func (r *MongoConnectionRepository) UpdateSyncStatus(ctx context.Context, businessID string, at time.Time, status domain.SyncStatus) error {
	update := bson.M{"$set": bson.M{
		"lastSyncAt":     at,
		"lastSyncStatus": string(status),
		"updatedAt":      time.Now(),
	}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"businessId": businessID}, update); err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// UpdateWebhookIDs replaces the stored webhook subscription ids
func (r *MongoConnectionRepository) UpdateWebhookIDs(ctx context.Context, businessID string, ids []int64) error {
	update := bson.M{"$set": bson.M{
		"webhookIds": ids,
		"updatedAt":  time.Now(),
	}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"businessId": businessID}, update); err != nil {
		return fmt.Errorf("failed to update webhook ids: %w", err)
	}
	return nil
}

// Delete removes a connection by business id
func (r *MongoConnectionRepository) Delete(ctx context.Context, businessID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"businessId": businessID}); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}
