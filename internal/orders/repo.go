package orders

import (
	"context"

	"github.com/angelmondragon/vistore-backend/internal/repo"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists placed orders.
type Repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListOrders returns every order, newest first.
func (r *Repository) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := r.DB(ctx).Order("created_at DESC").Order("id").Find(&out).Error; err != nil {
		return nil, repo.Unavailable(err, "list orders")
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}

// GetOrder loads one order; absence is reported through found.
func (r *Repository) GetOrder(ctx context.Context, id string) (models.Order, bool, error) {
	return repo.TakeOne[models.Order](r.DB(ctx).Where("id = ?", id), "load order")
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return repo.Unavailable(r.DB(ctx).Create(order).Error, "create order")
}

// UpdateStatus sets the order status and reports whether the order exists.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return false, repo.Unavailable(res.Error, "update order status")
	}
	return res.RowsAffected > 0, nil
}
