package entity

import (
	"time"

	"catalog-sync-engine/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoConnectionDoc represents a connection in MongoDB
type MongoConnectionDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	BusinessID     string             `bson:"businessId"`
	ShopDomain     string             `bson:"shopDomain"`
	AccessToken    string             `bson:"accessToken"`
	Scopes         []string           `bson:"scopes"`
	WebhookIDs     []int64            `bson:"webhookIds"`
	LastSyncAt     *time.Time         `bson:"lastSyncAt,omitempty"`
	LastSyncStatus string             `bson:"lastSyncStatus,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoConnectionDoc) ToDomain() *domain.Connection {
	return &domain.Connection{
		ID:             d.ID.Hex(),
		BusinessID:     d.BusinessID,
		ShopDomain:     d.ShopDomain,
		AccessToken:    d.AccessToken,
		Scopes:         d.Scopes,
		WebhookIDs:     d.WebhookIDs,
		LastSyncAt:     d.LastSyncAt,
		LastSyncStatus: domain.SyncStatus(d.LastSyncStatus),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoConnectionDocFromDomain converts a domain entity to a MongoDB document
func MongoConnectionDocFromDomain(conn *domain.Connection) *MongoConnectionDoc {
	doc := &MongoConnectionDoc{
		BusinessID:     conn.BusinessID,
		ShopDomain:     conn.ShopDomain,
		AccessToken:    conn.AccessToken,
		Scopes:         conn.Scopes,
		WebhookIDs:     conn.WebhookIDs,
		LastSyncAt:     conn.LastSyncAt,
		LastSyncStatus: string(conn.LastSyncStatus),
		CreatedAt:      conn.CreatedAt,
		UpdatedAt:      conn.UpdatedAt,
	}
	if conn.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(conn.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc
}
