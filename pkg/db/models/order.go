package models

import (
	"time"

	dbtypes "github.com/angelmondragon/vistore-backend/pkg/db/types"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// GuestUserID marks orders placed without a signed-in account.
const GuestUserID = "guest"

// Order is a placed order. Only Status changes after creation.
type Order struct {
	ID        string             `gorm:"column:id;primaryKey"`
	UserID    string             `gorm:"column:user_id;not null"`
	Items     dbtypes.OrderItems `gorm:"column:items;not null"`
	Total     decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	Status    enums.OrderStatus  `gorm:"column:status;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
