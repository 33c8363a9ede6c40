package product

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProductDTO is the storefront product payload.
type ProductDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Image         string           `json:"image"`
	Rating        float64          `json:"rating"`
	ReviewCount   int              `json:"reviewCount"`
	Category      string           `json:"category"`
	IsNew         bool             `json:"isNew,omitempty"`
	IsTrending    bool             `json:"isTrending,omitempty"`
	InStock       bool             `json:"inStock"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	CreatedAt     *time.Time       `json:"createdAt,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		Category:      p.Category,
		IsNew:         p.IsNew,
		IsTrending:    p.IsTrending,
		InStock:       p.InStock,
		Discount:      p.Discount,
		CreatedAt:     p.CreatedAt,
	}
}

// NewProductDTOs maps a list, preserving order.
func NewProductDTOs(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for _, p := range list {
		out = append(out, NewProductDTO(p))
	}
	return out
}

// LooseNumber accepts a JSON number, a numeric string, or anything else.
// Values that are not numbers are kept as raw text and coerce to zero.
type LooseNumber struct {
	raw string
	set bool
}

// NewLooseNumber wraps a raw form value.
func NewLooseNumber(raw string) LooseNumber {
	return LooseNumber{raw: raw, set: true}
}

func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	n.set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.raw = s
		return nil
	}
	n.raw = string(data)
	return nil
}

// IsSet reports whether the field was present in the payload.
func (n LooseNumber) IsSet() bool {
	return n.set
}

// Money coerces the value to a non-negative decimal; anything else is zero.
func (n LooseNumber) Money() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(n.raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// OptionalMoney is Money, except an empty or null value stays absent.
func (n LooseNumber) OptionalMoney() *decimal.Decimal {
	if strings.TrimSpace(n.raw) == "" {
		return nil
	}
	d := n.Money()
	return &d
}

// Count coerces the value to a non-negative integer, truncating fractions.
func (n LooseNumber) Count() int {
	d, err := decimal.NewFromString(strings.TrimSpace(n.raw))
	if err != nil || d.IsNegative() {
		return 0
	}
	return int(d.IntPart())
}

// CreateProductInput is the admin add-product form.
type CreateProductInput struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Price         LooseNumber `json:"price"`
	OriginalPrice LooseNumber `json:"originalPrice"`
	Category      string      `json:"category" validate:"max=100"`
	Image         string      `json:"image" validate:"omitempty,url"`
	Stock         LooseNumber `json:"stock"`
	IsNew         bool        `json:"isNew"`
	IsTrending    bool        `json:"isTrending"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name          *string     `json:"name" validate:"omitempty,min=1,max=200"`
	Price         LooseNumber `json:"price"`
	OriginalPrice LooseNumber `json:"originalPrice"`
	Category      *string     `json:"category" validate:"omitempty,max=100"`
	Image         *string     `json:"image" validate:"omitempty,url"`
	Stock         LooseNumber `json:"stock"`
	IsNew         *bool       `json:"isNew"`
	IsTrending    *bool       `json:"isTrending"`
	Discount      LooseNumber `json:"discount"`
}

// SeedResult reports how many default products were inserted.
type SeedResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}
