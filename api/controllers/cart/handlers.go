package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vistore-backend/api/middleware"
	"github.com/angelmondragon/vistore-backend/api/responses"
	"github.com/angelmondragon/vistore-backend/api/validators"
	cartsvc "github.com/angelmondragon/vistore-backend/internal/cart"
	"github.com/angelmondragon/vistore-backend/internal/settings"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

// StoreOpener hands out the cart store for a shopper session.
type StoreOpener interface {
	Open(ctx context.Context, session string) (cartsvc.Handle, error)
}

type productLookup interface {
	Product(id string) (models.Product, bool)
}

type shippingQuoter interface {
	QuoteShipping(ctx context.Context, subtotal decimal.Decimal) settings.ShippingQuote
}

// Deps groups what the cart handlers need.
type Deps struct {
	Stores   StoreOpener
	Products productLookup
	Shipping shippingQuoter
	Logger   *logger.Logger
}

// CartFetch serves the cart drawer. A session minted by this request has
// nothing stored yet, so it is answered without loading a store.
func CartFetch(d Deps) http.HandlerFunc {
	fetch := withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		writeCart(w, r, d, store.Snapshot())
	})
	return func(w http.ResponseWriter, r *http.Request) {
		if middleware.CartSessionMinted(r.Context()) {
			writeCart(w, r, d, cartsvc.Snapshot{Lines: []cartsvc.CartLine{}, Total: decimal.Zero})
			return
		}
		fetch(w, r)
	}
}

// CartAdd adds one or more of a catalog product. Adding a product already in
// the cart raises its quantity.
func CartAdd(d Deps) http.HandlerFunc {
	return withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		item, err := lookupItem(d, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		qty := 1
		if payload.Quantity != nil {
			qty = *payload.Quantity
		}
		store.AddToCart(item, qty)
		writeCart(w, r, d, store.Snapshot())
	})
}

func CartUpdateQuantity(d Deps) http.HandlerFunc {
	return withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		store.UpdateQuantity(chi.URLParam(r, "productId"), payload.Quantity)
		writeCart(w, r, d, store.Snapshot())
	})
}

func CartRemove(d Deps) http.HandlerFunc {
	return withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		store.RemoveFromCart(chi.URLParam(r, "productId"))
		writeCart(w, r, d, store.Snapshot())
	})
}

func CartClear(d Deps) http.HandlerFunc {
	return withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		store.ClearCart()
		writeCart(w, r, d, store.Snapshot())
	})
}

func WishlistFetch(d Deps) http.HandlerFunc {
	fetch := withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		responses.WriteSuccess(w, newWishlistResponse(store.Wishlist()))
	})
	return func(w http.ResponseWriter, r *http.Request) {
		if middleware.CartSessionMinted(r.Context()) {
			responses.WriteSuccess(w, newWishlistResponse([]cartsvc.WishlistEntry{}))
			return
		}
		fetch(w, r)
	}
}

// WishlistToggle saves or unsaves a catalog product.
func WishlistToggle(d Deps) http.HandlerFunc {
	return withStore(d, func(w http.ResponseWriter, r *http.Request, store cartsvc.Handle) {
		var payload toggleWishlistRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		id := strings.TrimSpace(payload.ProductID)
		entry := cartsvc.WishlistEntry{ID: id}
		if !store.IsWishlisted(id) {
			item, err := lookupItem(d, id)
			if err != nil {
				responses.WriteError(r.Context(), d.Logger, w, err)
				return
			}
			entry = item
		}
		added := store.ToggleWishlist(entry)
		responses.WriteSuccess(w, toggleResponse{ProductID: id, Wishlisted: added})
	})
}

func withStore(d Deps, next func(http.ResponseWriter, *http.Request, cartsvc.Handle)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := middleware.CartSessionFromContext(r.Context())
		if session == "" {
			responses.WriteError(r.Context(), d.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
			return
		}
		store, err := d.Stores.Open(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		next(w, r, store)
	}
}

func lookupItem(d Deps, id string) (cartsvc.Item, error) {
	p, ok := d.Products.Product(strings.TrimSpace(id))
	if !ok {
		return cartsvc.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return cartsvc.Item{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image}, nil
}

func writeCart(w http.ResponseWriter, r *http.Request, d Deps, snap cartsvc.Snapshot) {
	resp := cartResponse{
		Items:     snap.Lines,
		Total:     snap.Total,
		ItemCount: snap.ItemCount,
	}
	if d.Shipping != nil {
		resp.Shipping = d.Shipping.QuoteShipping(r.Context(), snap.Total)
	}
	responses.WriteSuccess(w, resp)
}
