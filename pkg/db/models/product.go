package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a storefront listing. CreatedAt is nil on rows imported
// without a creation timestamp.
type Product struct {
	ID            string           `gorm:"column:id;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	Image         string           `gorm:"column:image;not null"`
	Rating        float64          `gorm:"column:rating;not null;default:0"`
	ReviewCount   int              `gorm:"column:review_count;not null;default:0"`
	Category      string           `gorm:"column:category;not null"`
	IsNew         bool             `gorm:"column:is_new;not null;default:false"`
	IsTrending    bool             `gorm:"column:is_trending;not null;default:false"`
	InStock       bool             `gorm:"column:in_stock;not null"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	Discount      *decimal.Decimal `gorm:"column:discount;type:numeric(5,2)"`
	CreatedAt     *time.Time       `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
