package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/vistore-backend/api/responses"
	"github.com/angelmondragon/vistore-backend/internal/catalog"
	"github.com/angelmondragon/vistore-backend/internal/orders"
	product "github.com/angelmondragon/vistore-backend/internal/products"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

var streamHeartbeat = 25 * time.Second

type productFeed interface {
	SubscribeProducts(ctx context.Context, fn func([]models.Product)) (catalog.Unsubscribe, error)
}

type orderFeed interface {
	SubscribeOrders(ctx context.Context, fn func([]models.Order)) (catalog.Unsubscribe, error)
}

// ProductStream pushes every product snapshot to the client as an SSE
// "products" event until the client disconnects.
func ProductStream(feed productFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		streamSnapshots(w, r, logg, "products", feed.SubscribeProducts, func(list []models.Product) any {
			return product.NewProductDTOs(list)
		})
	}
}

// AdminOrderStream pushes every order snapshot as an SSE "orders" event.
func AdminOrderStream(feed orderFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		streamSnapshots(w, r, logg, "orders", feed.SubscribeOrders, func(list []models.Order) any {
			return orders.NewOrderDTOs(list)
		})
	}
}

// streamSnapshots owns one mirror subscription for the lifetime of the
// request. Deliveries arrive on the mirror's goroutine and are handed to the
// request goroutine through a one-slot mailbox that keeps only the newest
// snapshot.
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, logg *logger.Logger, event string, subscribe func(context.Context, func([]T)) (catalog.Unsubscribe, error), render func([]T) any) {
	ctx := r.Context()
	mailbox := make(chan []T, 1)
	unsubscribe, err := subscribe(ctx, func(snapshot []T) {
		select {
		case <-mailbox:
		default:
		}
		mailbox <- snapshot
	})
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	defer unsubscribe()

	stream, err := responses.NewEventStream(w)
	if err != nil {
		logg.Error(ctx, "open event stream", err)
		return
	}

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-mailbox:
			if err := stream.Send(event, render(snapshot)); err != nil {
				logg.Debug(ctx, "event stream closed")
				return
			}
		case <-ticker.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
