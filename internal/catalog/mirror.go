package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
)

// Options groups dependencies for the mirror.
type Options struct {
	Feed     changefeed.Subscriber
	Products ProductSource
	Orders   OrderSource
	Logger   *logger.Logger
	Metrics  *metrics.MirrorMetrics

	// MinBackoff and MaxBackoff bound the wait between feed reconnects.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Mirror serves live and one-shot views of the product and order collections.
type Mirror struct {
	products ProductSource
	orders   OrderSource
	backoff  backoff

	productHub *hub[models.Product]
	orderHub   *hub[models.Order]
}

func NewMirror(opts Options) (*Mirror, error) {
	if opts.Feed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change feed is required")
	}
	if opts.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product source is required")
	}
	if opts.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order source is required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	b := exponentialBackoff(opts.MinBackoff, opts.MaxBackoff)
	return &Mirror{
		products:   opts.Products,
		orders:     opts.Orders,
		backoff:    b,
		productHub: newHub(changefeed.CollectionProducts, opts.Products.ListProducts, opts.Feed, logg, opts.Metrics, b),
		orderHub:   newHub(changefeed.CollectionOrders, opts.Orders.ListOrders, opts.Feed, logg, opts.Metrics, b),
	}, nil
}

// SubscribeProducts delivers the complete product list to fn now and after
// every change until the returned Unsubscribe is called or ctx ends.
func (m *Mirror) SubscribeProducts(ctx context.Context, fn func([]models.Product)) (Unsubscribe, error) {
	return m.productHub.subscribe(ctx, fn)
}

// SubscribeOrders is SubscribeProducts for orders, newest first.
func (m *Mirror) SubscribeOrders(ctx context.Context, fn func([]models.Order)) (Unsubscribe, error) {
	return m.orderHub.subscribe(ctx, fn)
}

func (m *Mirror) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return m.products.ListProducts(ctx)
}

func (m *Mirror) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return m.orders.ListOrders(ctx)
}

// GetProductByID looks up one product. A missing product is reported through
// found, not as an error.
func (m *Mirror) GetProductByID(ctx context.Context, id string) (models.Product, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Product{}, false, nil
	}
	return m.products.GetProduct(ctx, id)
}

// Subscribers reports attached readers per collection.
func (m *Mirror) Subscribers() map[changefeed.Collection]int {
	return map[changefeed.Collection]int{
		changefeed.CollectionProducts: m.productHub.subscribers(),
		changefeed.CollectionOrders:   m.orderHub.subscribers(),
	}
}

// Close detaches every subscriber and releases the feed subscriptions.
func (m *Mirror) Close() {
	m.productHub.close()
	m.orderHub.close()
}
