package domain

import "time"

// Source marks who owns a catalog row: the business (manual) or the
// upstream platform (synced).
type Source string

const (
	SourceManual Source = "manual"
	SourceSynced Source = "synced"
)

// InventoryPolicy controls what happens when a variant's inventory reaches
// zero upstream.
type InventoryPolicy string

const (
	// InventoryPolicyDeny blocks sales once stock runs out.
	InventoryPolicyDeny InventoryPolicy = "deny"
	// InventoryPolicyContinue allows overselling.
	InventoryPolicyContinue InventoryPolicy = "continue"
)

// Product is a catalog entry owned by a business. Synced products carry an
// external identifier unique within (business, source); manual products
// carry none. Products are never hard-deleted by the sync engine: upstream
// removal only flips Available, and Deleted is a business-level soft delete.
type Product struct {
	ID          string     `json:"id" bson:"_id"`
	BusinessID  string     `json:"business_id" bson:"business_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty" bson:"image_url,omitempty"`
	HasVariants bool       `json:"has_variants" bson:"has_variants"`
	Price       float64    `json:"price,omitempty" bson:"price,omitempty"` // simple products only
	Currency    string     `json:"currency,omitempty" bson:"currency,omitempty"`
	Source      Source     `json:"source" bson:"source"`
	ExternalID  string     `json:"external_id,omitempty" bson:"external_id,omitempty"`
	Order       int        `json:"order" bson:"order"`
	Available   bool       `json:"available" bson:"available"`
	Deleted     bool       `json:"deleted" bson:"deleted"`
	SyncedAt    *time.Time `json:"synced_at,omitempty" bson:"synced_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// VariantOption is one named option/value pair (e.g. Size: M). A variant
// carries at most three.
type VariantOption struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// Variant is a child of a variant-bearing Product. ExternalID is globally
// unique because the upstream platform assigns it globally, not per product.
type Variant struct {
	ID                string          `json:"id" bson:"_id"`
	ProductID         string          `json:"product_id" bson:"product_id"`
	BusinessID        string          `json:"business_id" bson:"business_id"`
	ExternalID        string          `json:"external_id,omitempty" bson:"external_id,omitempty"`
	Name              string          `json:"name" bson:"name"`
	SKU               string          `json:"sku,omitempty" bson:"sku,omitempty"`
	Barcode           string          `json:"barcode,omitempty" bson:"barcode,omitempty"`
	Price             float64         `json:"price" bson:"price"`
	CompareAtPrice    float64         `json:"compare_at_price,omitempty" bson:"compare_at_price,omitempty"`
	InventoryQuantity int             `json:"inventory_quantity" bson:"inventory_quantity"`
	InventoryPolicy   InventoryPolicy `json:"inventory_policy" bson:"inventory_policy"`
	TrackInventory    bool            `json:"track_inventory" bson:"track_inventory"`
	Options           []VariantOption `json:"options,omitempty" bson:"options,omitempty"`
	ImageURL          string          `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Weight            float64         `json:"weight,omitempty" bson:"weight,omitempty"`
	WeightUnit        string          `json:"weight_unit,omitempty" bson:"weight_unit,omitempty"`
	RequiresShipping  bool            `json:"requires_shipping" bson:"requires_shipping"`
	Position          int             `json:"position" bson:"position"`
	Available         bool            `json:"available" bson:"available"`
	SyncedAt          *time.Time      `json:"synced_at,omitempty" bson:"synced_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" bson:"updated_at"`
}
