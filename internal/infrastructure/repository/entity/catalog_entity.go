package entity

import (
	"time"

	"catalog-sync-engine/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoProductDoc represents a product in MongoDB
type MongoProductDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	BusinessID  string             `bson:"businessId"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty"`
	HasVariants bool               `bson:"hasVariants"`
	Price       float64            `bson:"price,omitempty"`
	Currency    string             `bson:"currency,omitempty"`
	Source      string             `bson:"source"`
	ExternalID  string             `bson:"externalId,omitempty"`
	Order       int                `bson:"order"`
	Available   bool               `bson:"available"`
	Deleted     bool               `bson:"deleted"`
	SyncedAt    *time.Time         `bson:"syncedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoProductDoc) ToDomain() *domain.Product {
	return &domain.Product{
		ID:          d.ID.Hex(),
		BusinessID:  d.BusinessID,
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		HasVariants: d.HasVariants,
		Price:       d.Price,
		Currency:    d.Currency,
		Source:      domain.Source(d.Source),
		ExternalID:  d.ExternalID,
		Order:       d.Order,
		Available:   d.Available,
		Deleted:     d.Deleted,
		SyncedAt:    d.SyncedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoProductDocFromDomain converts a domain entity to a MongoDB document
func MongoProductDocFromDomain(p *domain.Product) *MongoProductDoc {
	doc := &MongoProductDoc{
		BusinessID:  p.BusinessID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		HasVariants: p.HasVariants,
		Price:       p.Price,
		Currency:    p.Currency,
		Source:      string(p.Source),
		ExternalID:  p.ExternalID,
		Order:       p.Order,
		Available:   p.Available,
		Deleted:     p.Deleted,
		SyncedAt:    p.SyncedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(p.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc
}

// MongoVariantDoc represents a variant in MongoDB
type MongoVariantDoc struct {
	ID                primitive.ObjectID     `bson:"_id,omitempty"`
	ProductID         string                 `bson:"productId"`
	BusinessID        string                 `bson:"businessId"`
	ExternalID        string                 `bson:"externalId,omitempty"`
	Name              string                 `bson:"name"`
	SKU               string                 `bson:"sku,omitempty"`
	Barcode           string                 `bson:"barcode,omitempty"`
	Price             float64                `bson:"price"`
	CompareAtPrice    float64                `bson:"compareAtPrice,omitempty"`
	InventoryQuantity int                    `bson:"inventoryQuantity"`
	InventoryPolicy   string                 `bson:"inventoryPolicy"`
	TrackInventory    bool                   `bson:"trackInventory"`
	Options           []domain.VariantOption `bson:"options,omitempty"`
	ImageURL          string                 `bson:"imageUrl,omitempty"`
	Weight            float64                `bson:"weight,omitempty"`
	WeightUnit        string                 `bson:"weightUnit,omitempty"`
	RequiresShipping  bool                   `bson:"requiresShipping"`
	Position          int                    `bson:"position"`
	Available         bool                   `bson:"available"`
	SyncedAt          *time.Time             `bson:"syncedAt,omitempty"`
	CreatedAt         time.Time              `bson:"createdAt"`
	UpdatedAt         time.Time              `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoVariantDoc) ToDomain() *domain.Variant {
	return &domain.Variant{
		ID:                d.ID.Hex(),
		ProductID:         d.ProductID,
		BusinessID:        d.BusinessID,
		ExternalID:        d.ExternalID,
		Name:              d.Name,
		SKU:               d.SKU,
		Barcode:           d.Barcode,
		Price:             d.Price,
		CompareAtPrice:    d.CompareAtPrice,
		InventoryQuantity: d.InventoryQuantity,
		InventoryPolicy:   domain.InventoryPolicy(d.InventoryPolicy),
		TrackInventory:    d.TrackInventory,
		Options:           d.Options,
		ImageURL:          d.ImageURL,
		Weight:            d.Weight,
		WeightUnit:        d.WeightUnit,
		RequiresShipping:  d.RequiresShipping,
		Position:          d.Position,
		Available:         d.Available,
		SyncedAt:          d.SyncedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoVariantDocFromDomain converts a domain entity to a MongoDB document
func MongoVariantDocFromDomain(v *domain.Variant) *MongoVariantDoc {
	doc := &MongoVariantDoc{
		ProductID:         v.ProductID,
		BusinessID:        v.BusinessID,
		ExternalID:        v.ExternalID,
		Name:              v.Name,
		SKU:               v.SKU,
		Barcode:           v.Barcode,
		Price:             v.Price,
		CompareAtPrice:    v.CompareAtPrice,
		InventoryQuantity: v.InventoryQuantity,
		InventoryPolicy:   string(v.InventoryPolicy),
		TrackInventory:    v.TrackInventory,
		Options:           v.Options,
		ImageURL:          v.ImageURL,
		Weight:            v.Weight,
		WeightUnit:        v.WeightUnit,
		RequiresShipping:  v.RequiresShipping,
		Position:          v.Position,
		Available:         v.Available,
		SyncedAt:          v.SyncedAt,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
	if v.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(v.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc
}
