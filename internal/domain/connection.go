package domain

import "time"

// SyncStatus is the recorded outcome of the most recent full sync run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// Connection is the per-business link to the upstream commerce platform.
// At most one Connection exists per business: SaveConnection overwrites in
// place on reconnect instead of inserting a second row.
type Connection struct {
	ID             string     `json:"id" bson:"_id"`
	BusinessID     string     `json:"business_id" bson:"business_id"`
	ShopDomain     string     `json:"shop_domain" bson:"shop_domain"`
	AccessToken    string     `json:"-" bson:"access_token"` // encrypted at rest
	Scopes         []string   `json:"scopes" bson:"scopes"`
	WebhookIDs     []int64    `json:"webhook_ids" bson:"webhook_ids"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty" bson:"last_sync_at,omitempty"`
	LastSyncStatus SyncStatus `json:"last_sync_status,omitempty" bson:"last_sync_status,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// ConnectionStatus is the upward-facing view of a business's connection.
type ConnectionStatus struct {
	Connected      bool       `json:"connected"`
	ShopDomain     string     `json:"shop_domain,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus SyncStatus `json:"last_sync_status,omitempty"`
}
