package domain

// UpstreamVariant is the parsed representation of one variant as delivered
// by the upstream platform, either inside a paginated listing page or inside
// a webhook payload.
type UpstreamVariant struct {
	ExternalID        string
	Name              string
	SKU               string
	Barcode           string
	Price             float64
	CompareAtPrice    float64
	InventoryQuantity int
	InventoryPolicy   InventoryPolicy
	Options           []VariantOption
	ImageURL          string
	Weight            float64
	WeightUnit        string
	RequiresShipping  bool
	Position          int
}

// UpstreamProduct is the parsed representation of one upstream product.
// Simple products carry a direct price and no variants; variant-bearing
// products carry one UpstreamVariant per upstream variant.
type UpstreamProduct struct {
	ExternalID  string
	Name        string
	Description string
	ImageURL    string
	Price       float64 // simple products only
	Currency    string
	Variants    []UpstreamVariant
}

// HasVariants reports whether the product is variant-bearing.
func (p UpstreamProduct) HasVariants() bool {
	return len(p.Variants) > 0
}
