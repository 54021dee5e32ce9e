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

// MongoCatalogRepository implements CatalogRepository using MongoDB
type MongoCatalogRepository struct {
	products *mongo.Collection
	variants *mongo.Collection
}

// NewMongoCatalogRepository creates a new MongoDB catalog repository
func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{
		products: db.Collection("products"),
		variants: db.Collection("variants"),
	}
}

var _ ports.CatalogRepository = (*MongoCatalogRepository)(nil)

// EnsureIndexes creates the uniqueness indexes backing the upsert keys:
// (businessId, source, externalId) for products and the global externalId
// for variants. Partial filters keep detached rows (empty externalId) out of
// the unique constraint.
func (r *MongoCatalogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "businessId", Value: 1},
				{Key: "source", Value: 1},
				{Key: "externalId", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalId": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "order", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	_, err = r.variants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalId": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "productId", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create variant indexes: %w", err)
	}
	return nil
}

// GetProductByExternalID looks up a synced product
func (r *MongoCatalogRepository) GetProductByExternalID(ctx context.Context, businessID, externalID string) (*domain.Product, error) {
	var doc entity.MongoProductDoc
	filter := bson.M{
		"businessId": businessID,
		"source":     string(domain.SourceSynced),
		"externalId": externalID,
	}
	err := r.products.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.ToDomain(), nil
}

// InsertProduct inserts a new product and returns its id
func (r *MongoCatalogRepository) InsertProduct(ctx context.Context, p *domain.Product) (string, error) {
	doc := entity.MongoProductDocFromDomain(p)
	doc.ID = primitive.NewObjectID()
	if _, err := r.products.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}
	return doc.ID.Hex(), nil
}

// UpdateProduct patches the mutable fields of an existing product
func (r *MongoCatalogRepository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	id, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", p.ID, err)
	}
	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"imageUrl":    p.ImageURL,
		"hasVariants": p.HasVariants,
		"price":       p.Price,
		"currency":    p.Currency,
		"available":   p.Available,
		"syncedAt":    p.SyncedAt,
		"updatedAt":   p.UpdatedAt,
	}}
	if _, err := r.products.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// ListProducts returns every product of a business, soft-deleted included
func (r *MongoCatalogRepository) ListProducts(ctx context.Context, businessID string) ([]*domain.Product, error) {
	return r.findProducts(ctx, bson.M{"businessId": businessID})
}

// ListSyncedProducts returns synced, not-deleted products
func (r *MongoCatalogRepository) ListSyncedProducts(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Product, error) {
	filter := bson.M{
		"businessId": businessID,
		"source":     string(domain.SourceSynced),
		"deleted":    false,
	}
	if availableOnly {
		filter["available"] = true
	}
	return r.findProducts(ctx, filter)
}

func (r *MongoCatalogRepository) findProducts(ctx context.Context, filter bson.M) ([]*domain.Product, error) {
	cursor, err := r.products.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Product
	for cursor.Next(ctx) {
		var doc entity.MongoProductDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		out = append(out, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

// MarkProductUnavailable flips available to false with a refreshed sync
// timestamp
func (r *MongoCatalogRepository) MarkProductUnavailable(ctx context.Context, productID string, at time.Time) error {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", productID, err)
	}
	update := bson.M{"$set": bson.M{
		"available": false,
		"syncedAt":  at,
		"updatedAt": at,
	}}
	if _, err := r.products.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to mark product unavailable: %w", err)
	}
	return nil
}

// GetVariantByExternalID looks up a variant by its globally-unique external
// id
func (r *MongoCatalogRepository) GetVariantByExternalID(ctx context.Context, externalID string) (*domain.Variant, error) {
	var doc entity.MongoVariantDoc
	err := r.variants.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return doc.ToDomain(), nil
}

// InsertVariant inserts a new variant and returns its id
func (r *MongoCatalogRepository) InsertVariant(ctx context.Context, v *domain.Variant) (string, error) {
	doc := entity.MongoVariantDocFromDomain(v)
	doc.ID = primitive.NewObjectID()
	if _, err := r.variants.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert variant: %w", err)
	}
	return doc.ID.Hex(), nil
}

// UpdateVariant patches the mutable fields of an existing variant
func (r *MongoCatalogRepository) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	id, err := primitive.ObjectIDFromHex(v.ID)
	if err != nil {
		return fmt.Errorf("invalid variant id %q: %w", v.ID, err)
	}
	update := bson.M{"$set": bson.M{
		"name":              v.Name,
		"sku":               v.SKU,
		"barcode":           v.Barcode,
		"price":             v.Price,
		"compareAtPrice":    v.CompareAtPrice,
		"inventoryQuantity": v.InventoryQuantity,
		"inventoryPolicy":   string(v.InventoryPolicy),
		"options":           v.Options,
		"imageUrl":          v.ImageURL,
		"weight":            v.Weight,
		"weightUnit":        v.WeightUnit,
		"requiresShipping":  v.RequiresShipping,
		"position":          v.Position,
		"available":         v.Available,
		"syncedAt":          v.SyncedAt,
		"updatedAt":         v.UpdatedAt,
	}}
	if _, err := r.variants.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return nil
}

// ListSyncedVariants returns a business's synced variants
func (r *MongoCatalogRepository) ListSyncedVariants(ctx context.Context, businessID string, availableOnly bool) ([]*domain.Variant, error) {
	filter := bson.M{
		"businessId": businessID,
		"externalId": bson.M{"$gt": ""},
	}
	if availableOnly {
		filter["available"] = true
	}
	cursor, err := r.variants.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Variant
	for cursor.Next(ctx) {
		var doc entity.MongoVariantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode variant: %w", err)
		}
		out = append(out, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

// MarkVariantUnavailable flips available to false with a refreshed sync
// timestamp
func (r *MongoCatalogRepository) MarkVariantUnavailable(ctx context.Context, variantID string, at time.Time) error {
	id, err := primitive.ObjectIDFromHex(variantID)
	if err != nil {
		return fmt.Errorf("invalid variant id %q: %w", variantID, err)
	}
	update := bson.M{"$set": bson.M{
		"available": false,
		"syncedAt":  at,
		"updatedAt": at,
	}}
	if _, err := r.variants.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to mark variant unavailable: %w", err)
	}
	return nil
}

// DetachBusinessCatalog strips the sync linkage from every synced row of the
// business, leaving names, prices and availability untouched. Row counts are
// identical before and after.
func (r *MongoCatalogRepository) DetachBusinessCatalog(ctx context.Context, businessID string, at time.Time) (int64, error) {
	productUpdate := bson.M{
		"$set": bson.M{
			"source":    string(domain.SourceManual),
			"updatedAt": at,
		},
		"$unset": bson.M{
			"externalId": "",
			"syncedAt":   "",
		},
	}
	res, err := r.products.UpdateMany(ctx, bson.M{
		"businessId": businessID,
		"source":     string(domain.SourceSynced),
	}, productUpdate)
	if err != nil {
		return 0, fmt.Errorf("failed to detach products: %w", err)
	}

	variantUpdate := bson.M{
		"$set": bson.M{"updatedAt": at},
		"$unset": bson.M{
			"externalId": "",
			"syncedAt":   "",
		},
	}
	if _, err := r.variants.UpdateMany(ctx, bson.M{"businessId": businessID}, variantUpdate); err != nil {
		return res.ModifiedCount, fmt.Errorf("failed to detach variants: %w", err)
	}
	return res.ModifiedCount, nil
}
