package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

type productSubscriber interface {
	SubscribeProducts(ctx context.Context, fn func([]models.Product)) (Unsubscribe, error)
}

// LiveCatalog is the storefront's product list. It serves the seed list until
// the first live snapshot arrives; from then on the live list is used, even
// when it is empty.
type LiveCatalog struct {
	mirror  productSubscriber
	logg    *logger.Logger
	backoff backoff

	mu       sync.RWMutex
	products []models.Product
	live     bool
	ready    chan struct{}
}

func NewLiveCatalog(mirror productSubscriber, seed []models.Product, logg *logger.Logger) *LiveCatalog {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LiveCatalog{
		mirror:   mirror,
		logg:     logg,
		backoff:  exponentialBackoff(defaultMinBackoff, defaultMaxBackoff),
		products: slices.Clone(seed),
		ready:    make(chan struct{}),
	}
}

// Run keeps the catalog subscribed until ctx ends. Failing to subscribe is
// logged and retried; the current list stays in place meanwhile.
func (c *LiveCatalog) Run(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		unsubscribe, err := c.mirror.SubscribeProducts(ctx, c.apply)
		if err == nil {
			c.logg.Info(ctx, "live catalog subscribed")
			<-ctx.Done()
			unsubscribe()
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		c.logg.WarnErr(c.logg.WithField(ctx, "attempt", attempt), "live catalog subscription failed, serving current list", err)
		if !sleep(ctx, c.backoff(attempt)) {
			return nil
		}
	}
}

func (c *LiveCatalog) apply(products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	if !c.live {
		c.live = true
		close(c.ready)
	}
}

// Products returns a copy of the list currently served.
func (c *LiveCatalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

// Product finds one product in the served list.
func (c *LiveCatalog) Product(id string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// IsLive reports whether a live snapshot has replaced the seed.
func (c *LiveCatalog) IsLive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live
}

// Ready is closed once the first live snapshot is applied.
func (c *LiveCatalog) Ready() <-chan struct{} {
	return c.ready
}
