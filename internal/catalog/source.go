// Package catalog mirrors the product and order collections for live readers.
//
// A Mirror keeps one change feed subscription per collection no matter how
// many readers are attached, reloads the full collection whenever the feed
// reports a change and hands every reader its own copy of the result.
package catalog

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
)

// ProductSource reads the product collection. Order is unspecified.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, bool, error)
}

// OrderSource reads the order collection, newest first.
type OrderSource interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// Unsubscribe stops delivery to one subscriber. Calling it again is a no-op.
type Unsubscribe func()

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	maxBackoffShift   = 16
)

// backoff returns the wait before retry number attempt (starting at 1):
// exponential growth from min with up to 50% jitter, capped at max.
type backoff func(attempt int) time.Duration

func exponentialBackoff(min, max time.Duration) backoff {
	if min <= 0 {
		min = defaultMinBackoff
	}
	if max < min {
		max = min
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		if attempt > maxBackoffShift {
			attempt = maxBackoffShift
		}
		base := min << (attempt - 1)
		if base <= 0 || base > max {
			base = max
		}
		wait := base + rand.N(base/2+1)
		if wait > max {
			wait = max
		}
		return wait
	}
}

// sleep waits for d or until ctx is done, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
