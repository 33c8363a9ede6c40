package models

import (
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// GlobalSettingsID is the id of the single store-wide settings row.
const GlobalSettingsID = "global"

type Settings struct {
	ID                    string          `gorm:"column:id;primaryKey"`
	FreeShippingThreshold decimal.Decimal `gorm:"column:free_shipping_threshold;type:numeric(12,2);not null"`
	Currency              enums.Currency  `gorm:"column:currency;not null"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Settings) TableName() string { return "settings" }
