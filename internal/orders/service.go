package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/vistore-backend/pkg/db/types"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service defines order operations for buyers and admins.
type Service interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, bool, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	BuyNow(ctx context.Context, userID uuid.UUID, productID string) (*OrderDTO, error)
}

type orderStore interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (bool, error)
}

// productLookup resolves the product a shopper is looking at.
type productLookup interface {
	Product(id string) (models.Product, bool)
}

type orderCounter interface {
	IncrementOrderCount(ctx context.Context, id uuid.UUID, by int) error
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repo      orderStore
	Products  productLookup
	Users     orderCounter
	Publisher changefeed.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      orderStore
	products  productLookup
	users     orderCounter
	publisher changefeed.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product lookup is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repository is required")
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
		products:  params.Products,
		users:     params.Users,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *service) GetOrder(ctx context.Context, id string) (models.Order, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Order{}, false, nil
	}
	return s.repo.GetOrder(ctx, id)
}

// UpdateStatus moves an order to one of the known statuses.
func (s *service) UpdateStatus(ctx context.Context, id string, raw string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	found, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	s.publish(ctx, id, changefeed.OpUpdate)
	return nil
}

// BuyNow places a pending single-item order at the listed price. A nil
// userID places a guest order. No payment is taken and stock is untouched.
func (s *service) BuyNow(ctx context.Context, userID uuid.UUID, productID string) (*OrderDTO, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, ok := s.products.Product(productID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !p.InStock {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock")
	}

	buyer := models.GuestUserID
	if userID != uuid.Nil {
		buyer = userID.String()
	}
	order := &models.Order{
		ID:     uuid.NewString(),
		UserID: buyer,
		Items: dbtypes.OrderItems{{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       1,
		}},
		Total:     p.Price,
		Status:    enums.OrderStatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	s.publish(ctx, order.ID, changefeed.OpInsert)

	if userID != uuid.Nil {
		if err := s.users.IncrementOrderCount(ctx, userID, 1); err != nil {
			s.logg.WarnErr(s.logg.WithField(ctx, "order_id", order.ID), "failed to increment order count", err)
		}
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) publish(ctx context.Context, id string, op changefeed.Op) {
	if s.publisher == nil {
		return
	}
	ev := changefeed.Event{Collection: changefeed.CollectionOrders, ID: id, Op: op}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "order_id", id), "failed to publish order change", err)
	}
}
