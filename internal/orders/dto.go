package orders

import (
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/vistore-backend/pkg/db/types"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderDTO is the order payload shown to admins and buyers.
type OrderDTO struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Items     []dbtypes.OrderItem `json:"items"`
	Total     decimal.Decimal     `json:"total"`
	Status    enums.OrderStatus   `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

// NewOrderDTO maps the model, reporting a missing status as Pending.
func NewOrderDTO(o models.Order) OrderDTO {
	items := []dbtypes.OrderItem(o.Items)
	if items == nil {
		items = []dbtypes.OrderItem{}
	}
	return OrderDTO{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     o.Total,
		Status:    o.Status.OrDefault(),
		CreatedAt: o.CreatedAt,
	}
}

func NewOrderDTOs(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, NewOrderDTO(o))
	}
	return out
}

// BuyNowRequest places a single-item order for one product.
type BuyNowRequest struct {
	ProductID string `json:"productId" validate:"required,notblank,max=100"`
}

// UpdateStatusRequest carries the admin status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
