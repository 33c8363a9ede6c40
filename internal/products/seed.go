package product

import (
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

const seedImageParams = "?w=400&h=400&fit=crop&crop=center"

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func moneyPtr(v string) *decimal.Decimal {
	d := money(v)
	return &d
}

func unsplash(photo string) string {
	return "https://images.unsplash.com/" + photo + seedImageParams
}

// DefaultProducts returns the built-in catalog shown before live data
// arrives and inserted by the admin seed action. Every call returns a fresh
// slice.
func DefaultProducts() []models.Product {
	return []models.Product{
		{
			ID:            "1",
			Name:          "Wireless Bluetooth Headphones",
			Price:         money("99.99"),
			OriginalPrice: moneyPtr("149.99"),
			Image:         unsplash("photo-1505740420928-5e560c06d30e"),
			Rating:        4.5,
			ReviewCount:   128,
			Category:      "Electronics",
			IsTrending:    true,
			InStock:       true,
		},
		{
			ID:            "2",
			Name:          "Smart Fitness Watch",
			Price:         money("199.99"),
			OriginalPrice: moneyPtr("299.99"),
			Image:         unsplash("photo-1523275335684-37898b6baf30"),
			Rating:        4.8,
			ReviewCount:   89,
			Category:      "Wearables",
			IsNew:         true,
			InStock:       true,
		},
		{
			ID:          "3",
			Name:        "Professional Camera Lens",
			Price:       money("459.99"),
			Image:       unsplash("photo-1606983340126-99ab4feaa64a"),
			Rating:      4.7,
			ReviewCount: 45,
			Category:    "Photography",
			IsTrending:  true,
			InStock:     true,
		},
		{
			ID:            "4",
			Name:          "Ergonomic Office Chair",
			Price:         money("289.99"),
			OriginalPrice: moneyPtr("399.99"),
			Image:         unsplash("photo-1586023492125-27b2c045efd7"),
			Rating:        4.6,
			ReviewCount:   67,
			Category:      "Furniture",
			InStock:       true,
		},
		{
			ID:            "5",
			Name:          "Wireless Gaming Mouse",
			Price:         money("79.99"),
			OriginalPrice: moneyPtr("99.99"),
			Image:         unsplash("photo-1527864550417-7fd91fc51a46"),
			Rating:        4.4,
			ReviewCount:   203,
			Category:      "Gaming",
			IsTrending:    true,
			InStock:       true,
		},
		{
			ID:          "6",
			Name:        "Premium Coffee Maker",
			Price:       money("149.99"),
			Image:       unsplash("photo-1495474472287-4d71bcdd2085"),
			Rating:      4.3,
			ReviewCount: 156,
			Category:    "Kitchen",
			IsNew:       true,
			InStock:     true,
		},
		{
			ID:            "7",
			Name:          "Designer Backpack",
			Price:         money("89.99"),
			OriginalPrice: moneyPtr("129.99"),
			Image:         unsplash("photo-1553062407-98eeb64c6a62"),
			Rating:        4.5,
			ReviewCount:   92,
			Category:      "Fashion",
			InStock:       true,
		},
		{
			ID:            "8",
			Name:          "Bluetooth Speaker",
			Price:         money("59.99"),
			OriginalPrice: moneyPtr("89.99"),
			Image:         unsplash("photo-1608043152269-423dbba4e7e1"),
			Rating:        4.2,
			ReviewCount:   178,
			Category:      "Audio",
			IsTrending:    true,
			InStock:       true,
		},
	}
}
