package cart

import (
	cartsvc "github.com/angelmondragon/vistore-backend/internal/cart"
	"github.com/angelmondragon/vistore-backend/internal/settings"
	"github.com/shopspring/decimal"
)

// cartResponse is the cart drawer payload.
type cartResponse struct {
	Items     []cartsvc.CartLine     `json:"items"`
	Total     decimal.Decimal        `json:"total"`
	ItemCount int                    `json:"itemCount"`
	Shipping  settings.ShippingQuote `json:"shipping"`
}

type wishlistResponse struct {
	Items []cartsvc.WishlistEntry `json:"items"`
	Count int                     `json:"count"`
}

type toggleResponse struct {
	ProductID  string `json:"productId"`
	Wishlisted bool   `json:"wishlisted"`
}

func newWishlistResponse(entries []cartsvc.WishlistEntry) wishlistResponse {
	return wishlistResponse{Items: entries, Count: len(entries)}
}
