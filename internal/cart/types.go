package cart

import (
	"github.com/shopspring/decimal"
)

// Item is the product reference a shopper adds to the cart or wishlist.
type Item struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// CartLine is one product in the cart. A cart never holds two lines with the
// same ID and every line has Quantity >= 1.
type CartLine struct {
	Item
	Quantity int `json:"quantity"`
}

// Subtotal returns price * quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// WishlistEntry is a saved product. Membership is keyed by ID.
type WishlistEntry = Item

// Snapshot is a point-in-time copy of a store.
type Snapshot struct {
	Lines     []CartLine      `json:"items"`
	Wishlist  []WishlistEntry `json:"wishlist"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// Handle is the capability handed to request handlers for one shopper's store.
type Handle interface {
	AddToCart(item Item, qty int)
	RemoveFromCart(id string)
	UpdateQuantity(id string, qty int)
	ClearCart()
	ToggleWishlist(item WishlistEntry) bool
	IsWishlisted(id string) bool
	Cart() []CartLine
	Wishlist() []WishlistEntry
	Total() decimal.Decimal
	Snapshot() Snapshot
}

func totalOf(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func itemCountOf(lines []CartLine) int {
	n := 0
	for _, line := range lines {
		n += line.Quantity
	}
	return n
}

func copyLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

func copyWishlist(entries []WishlistEntry) []WishlistEntry {
	out := make([]WishlistEntry, len(entries))
	copy(out, entries)
	return out
}
