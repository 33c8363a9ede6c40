package product

import (
	"context"
	"errors"

	"github.com/angelmondragon/vistore-backend/internal/repo"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists storefront products.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListProducts returns every product in storage order. Rows without a
// creation timestamp are included.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := r.DB(ctx).Find(&out).Error; err != nil {
		return nil, repo.Unavailable(err, "list products")
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

// GetProduct loads one product; absence is reported through found.
func (r *Repository) GetProduct(ctx context.Context, id string) (models.Product, bool, error) {
	var p models.Product
	err := r.DB(ctx).Where("id = ?", id).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, false, nil
		}
		return models.Product{}, false, repo.Unavailable(err, "load product")
	}
	return p, true, nil
}

// CreateProducts inserts the given products in one statement.
func (r *Repository) CreateProducts(ctx context.Context, products ...*models.Product) error {
	if len(products) == 0 {
		return nil
	}
	if err := r.DB(ctx).Create(products).Error; err != nil {
		return repo.Unavailable(err, "create product")
	}
	return nil
}

// UpdateProduct applies column updates and reports whether the row existed.
func (r *Repository) UpdateProduct(ctx context.Context, id string, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		_, found, err := r.GetProduct(ctx, id)
		return found, err
	}
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, repo.Unavailable(res.Error, "update product")
	}
	return res.RowsAffected > 0, nil
}

// DeleteProduct removes a product and reports whether it existed.
func (r *Repository) DeleteProduct(ctx context.Context, id string) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, repo.Unavailable(res.Error, "delete product")
	}
	return res.RowsAffected > 0, nil
}

// ExistingNames returns which of names already belong to a product.
func (r *Repository) ExistingNames(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var found []string
	if err := r.DB(ctx).Model(&models.Product{}).Where("name IN ?", names).Pluck("name", &found).Error; err != nil {
		return nil, repo.Unavailable(err, "look up product names")
	}
	for _, name := range found {
		out[name] = struct{}{}
	}
	return out, nil
}
