// Package upstream holds the wire representation of products and variants
// as the commerce platform serializes them, and the mapping into domain
// types. The paginated listing adapter and the webhook payload parsers share
// these shapes.
package upstream

import (
	"encoding/json"
	"fmt"
	"strconv"

	"catalog-sync-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultVariantTitle is the placeholder variant the platform attaches to
// products that were created without variants. A product whose only variant
// carries this title is a simple product.
const DefaultVariantTitle = "Default Title"

// Image is a product or variant image on the wire.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// Option is a named product option (Size, Color, ...). Variants reference
// option values positionally via option1..option3.
type Option struct {
	Name string `json:"name"`
}

// Variant is one variant on the wire. Prices arrive as JSON strings.
type Variant struct {
	ID                int64            `json:"id"`
	ProductID         int64            `json:"product_id"`
	Title             string           `json:"title"`
	SKU               string           `json:"sku"`
	Barcode           string           `json:"barcode"`
	Price             *decimal.Decimal `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price"`
	InventoryQuantity int              `json:"inventory_quantity"`
	InventoryPolicy   string           `json:"inventory_policy"`
	Option1           string           `json:"option1"`
	Option2           string           `json:"option2"`
	Option3           string           `json:"option3"`
	ImageID           int64            `json:"image_id"`
	Weight            *decimal.Decimal `json:"weight"`
	WeightUnit        string           `json:"weight_unit"`
	RequiresShipping  bool             `json:"requires_shipping"`
	Position          int              `json:"position"`
}

// Product is one product on the wire.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	BodyHTML string    `json:"body_html"`
	Image    *Image    `json:"image"`
	Images   []Image   `json:"images"`
	Options  []Option  `json:"options"`
	Variants []Variant `json:"variants"`
}

// ProductsEnvelope wraps a product listing page.
type ProductsEnvelope struct {
	Products []Product `json:"products"`
}

// ProductEnvelope wraps a single-product response.
type ProductEnvelope struct {
	Product Product `json:"product"`
}

func money(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func policy(s string) domain.InventoryPolicy {
	if s == string(domain.InventoryPolicyContinue) {
		return domain.InventoryPolicyContinue
	}
	return domain.InventoryPolicyDeny
}

// FormatID renders a numeric upstream id as the external-id string stored in
// the record store.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ToDomain maps a wire variant. optionNames come from the owning product;
// a standalone variant payload carries none, so positional fallbacks are
// used. images maps image id to source URL.
func (v Variant) ToDomain(optionNames []string, images map[int64]string) domain.UpstreamVariant {
	name := func(i int) string {
		if i < len(optionNames) && optionNames[i] != "" {
			return optionNames[i]
		}
		return fmt.Sprintf("Option %d", i+1)
	}

	var options []domain.VariantOption
	for i, val := range []string{v.Option1, v.Option2, v.Option3} {
		if val == "" {
			continue
		}
		options = append(options, domain.VariantOption{Name: name(i), Value: val})
	}

	return domain.UpstreamVariant{
		ExternalID:        FormatID(v.ID),
		Name:              v.Title,
		SKU:               v.SKU,
		Barcode:           v.Barcode,
		Price:             money(v.Price),
		CompareAtPrice:    money(v.CompareAtPrice),
		InventoryQuantity: v.InventoryQuantity,
		InventoryPolicy:   policy(v.InventoryPolicy),
		Options:           options,
		ImageURL:          images[v.ImageID],
		Weight:            money(v.Weight),
		WeightUnit:        v.WeightUnit,
		RequiresShipping:  v.RequiresShipping,
		Position:          v.Position,
	}
}

// ToDomain maps a wire product. A product whose only variant is the
// platform's placeholder is mapped as a simple product carrying that
// variant's price directly.
func (p Product) ToDomain() domain.UpstreamProduct {
	out := domain.UpstreamProduct{
		ExternalID:  FormatID(p.ID),
		Name:        p.Title,
		Description: p.BodyHTML,
	}
	if p.Image != nil {
		out.ImageURL = p.Image.Src
	}

	if len(p.Variants) == 1 && p.Variants[0].Title == DefaultVariantTitle {
		out.Price = money(p.Variants[0].Price)
		return out
	}

	names := make([]string, len(p.Options))
	for i, o := range p.Options {
		names[i] = o.Name
	}
	images := make(map[int64]string, len(p.Images))
	for _, img := range p.Images {
		images[img.ID] = img.Src
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, v.ToDomain(names, images))
	}
	return out
}

// DecodeProduct parses a single-product webhook payload.
func DecodeProduct(data []byte) (domain.UpstreamProduct, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.UpstreamProduct{}, fmt.Errorf("failed to parse product payload: %w", err)
	}
	if p.ID == 0 {
		return domain.UpstreamProduct{}, fmt.Errorf("product payload has no id")
	}
	return p.ToDomain(), nil
}

// DecodeVariant parses a single-variant webhook payload. The second return
// is the external id of the owning product.
func DecodeVariant(data []byte) (domain.UpstreamVariant, string, error) {
	var v Variant
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.UpstreamVariant{}, "", fmt.Errorf("failed to parse variant payload: %w", err)
	}
	if v.ID == 0 {
		return domain.UpstreamVariant{}, "", fmt.Errorf("variant payload has no id")
	}
	if v.ProductID == 0 {
		return domain.UpstreamVariant{}, "", fmt.Errorf("variant payload has no product id")
	}
	return v.ToDomain(nil, nil), FormatID(v.ProductID), nil
}

// DecodeID parses a bare {"id": n} removal payload.
func DecodeID(data []byte) (string, error) {
	var ref struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("failed to parse removal payload: %w", err)
	}
	if ref.ID == 0 {
		return "", fmt.Errorf("removal payload has no id")
	}
	return FormatID(ref.ID), nil
}
