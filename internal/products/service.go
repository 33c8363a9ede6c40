package product

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service exposes product reads and admin management.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, bool, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id string, input UpdateProductInput) error
	DeleteProduct(ctx context.Context, id string) error
	SeedDefaults(ctx context.Context) (SeedResult, error)
}

type productStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, bool, error)
	CreateProducts(ctx context.Context, products ...*models.Product) error
	UpdateProduct(ctx context.Context, id string, updates map[string]any) (bool, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
	ExistingNames(ctx context.Context, names []string) (map[string]struct{}, error)
}

// ServiceParams groups dependencies for the product service.
type ServiceParams struct {
	Repo      productStore
	Publisher changefeed.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      productStore
	publisher changefeed.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repository is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) GetProduct(ctx context.Context, id string) (models.Product, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Product{}, false, nil
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct stores a new listing. Unparseable or negative price and stock
// become zero; a positive stock marks the product in stock.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	stock := input.Stock.Count()
	createdAt := s.now().UTC()
	p := &models.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         input.Price.Money(),
		OriginalPrice: input.OriginalPrice.OptionalMoney(),
		Image:         strings.TrimSpace(input.Image),
		Category:      strings.TrimSpace(input.Category),
		IsNew:         input.IsNew,
		IsTrending:    input.IsTrending,
		InStock:       stock > 0,
		Stock:         stock,
		CreatedAt:     &createdAt,
	}
	if err := s.repo.CreateProducts(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, p.ID, changefeed.OpInsert)
	dto := NewProductDTO(*p)
	return &dto, nil
}

// UpdateProduct applies a partial update. Unknown ids are a not-found error.
func (s *service) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Price.IsSet() {
		updates["price"] = input.Price.Money()
	}
	if input.OriginalPrice.IsSet() {
		updates["original_price"] = input.OriginalPrice.OptionalMoney()
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Image != nil {
		updates["image"] = strings.TrimSpace(*input.Image)
	}
	if input.Stock.IsSet() {
		stock := input.Stock.Count()
		updates["stock"] = stock
		updates["in_stock"] = stock > 0
	}
	if input.IsNew != nil {
		updates["is_new"] = *input.IsNew
	}
	if input.IsTrending != nil {
		updates["is_trending"] = *input.IsTrending
	}
	if input.Discount.IsSet() {
		updates["discount"] = input.Discount.OptionalMoney()
	}

	found, err := s.repo.UpdateProduct(ctx, id, updates)
	if err != nil {
		return err
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if len(updates) > 0 {
		s.publish(ctx, id, changefeed.OpUpdate)
	}
	return nil
}

// DeleteProduct removes a product; deleting an unknown id is a no-op.
func (s *service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	found, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if found {
		s.publish(ctx, id, changefeed.OpDelete)
	}
	return nil
}

// SeedDefaults inserts the default catalog, skipping any product whose name
// already exists.
func (s *service) SeedDefaults(ctx context.Context) (SeedResult, error) {
	defaults := DefaultProducts()
	names := make([]string, 0, len(defaults))
	for _, p := range defaults {
		names = append(names, p.Name)
	}
	existing, err := s.repo.ExistingNames(ctx, names)
	if err != nil {
		return SeedResult{}, err
	}

	createdAt := s.now().UTC()
	toCreate := make([]*models.Product, 0, len(defaults))
	for i := range defaults {
		if _, ok := existing[defaults[i].Name]; ok {
			continue
		}
		p := defaults[i]
		p.ID = uuid.NewString()
		p.CreatedAt = &createdAt
		toCreate = append(toCreate, &p)
	}
	if err := s.repo.CreateProducts(ctx, toCreate...); err != nil {
		return SeedResult{}, err
	}
	if len(toCreate) > 0 {
		s.publish(ctx, "", changefeed.OpInsert)
	}
	return SeedResult{Added: len(toCreate), Skipped: len(defaults) - len(toCreate)}, nil
}

// publish signals mirrors after a committed write. Failures are only logged.
func (s *service) publish(ctx context.Context, id string, op changefeed.Op) {
	if s.publisher == nil {
		return
	}
	ev := changefeed.Event{Collection: changefeed.CollectionProducts, ID: id, Op: op}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "product_id", id), "failed to publish product change", err)
	}
}
