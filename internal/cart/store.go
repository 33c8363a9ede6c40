// Package cart holds per-shopper cart and wishlist state. Every mutation is
// applied in memory under the store lock and then persisted in the background.
package cart

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	slotCart     = "cart"
	slotWishlist = "wishlist"
)

// Options configure a single store.
type Options struct {
	Session      string
	KeyPrefix    string
	Slot         Slot
	WriteTimeout time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.CartMetrics
}

// Store is one shopper's cart and wishlist.
type Store struct {
	mu       sync.Mutex
	lines    []CartLine
	wishlist []WishlistEntry

	writer   *writer
	released bool
	logg     *logger.Logger
	logCtx   context.Context
	metrics  *metrics.CartMetrics
	lastUsed atomic.Int64
}

var _ Handle = (*Store)(nil)

// Open loads both slots and returns a ready store. Unreadable or malformed
// slots start empty and are logged; they never fail the open.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Slot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart slot is required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	logCtx := context.Background()
	if opts.Session != "" {
		logCtx = logg.WithSessionID(logCtx, opts.Session)
	}
	cartKey, wishlistKey := Keys(opts.KeyPrefix, opts.Session)

	s := &Store{
		logg:    logg,
		logCtx:  logCtx,
		metrics: opts.Metrics,
	}

	var lines []CartLine
	if _, err := loadState(ctx, opts.Slot, cartKey, &lines); err != nil {
		logg.WarnErr(logCtx, "failed to load cart from storage", err)
		s.metrics.IncLoadFailure(slotCart)
		lines = nil
	}
	var wishlist []WishlistEntry
	if _, err := loadState(ctx, opts.Slot, wishlistKey, &wishlist); err != nil {
		logg.WarnErr(logCtx, "failed to load wishlist from storage", err)
		s.metrics.IncLoadFailure(slotWishlist)
		wishlist = nil
	}

	var fixedLines, fixedWishlist bool
	s.lines, fixedLines = normalizeLines(lines)
	s.wishlist, fixedWishlist = normalizeWishlist(wishlist)
	if fixedLines || fixedWishlist {
		logg.Warn(logCtx, "normalized invalid cart entries loaded from storage")
	}

	s.writer = newWriter(logCtx, opts.Slot, cartKey, wishlistKey, opts.WriteTimeout, logg, opts.Metrics)
	s.touch()
	return s, nil
}

// AddToCart adds qty of item, merging into an existing line with the same ID.
// A qty below 1 adds a single unit.
func (s *Store) AddToCart(item Item, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.mutate("add", func() {
		for i := range s.lines {
			if s.lines[i].ID == item.ID {
				s.lines[i].Quantity += qty
				return
			}
		}
		s.lines = append(s.lines, CartLine{Item: item, Quantity: qty})
	})
}

// RemoveFromCart deletes the line with id; unknown ids are ignored.
func (s *Store) RemoveFromCart(id string) {
	s.mutate("remove", func() {
		s.lines = withoutLine(s.lines, id)
	})
}

// UpdateQuantity sets the quantity of the line with id. Values <= 0 remove it.
func (s *Store) UpdateQuantity(id string, qty int) {
	s.mutate("update_quantity", func() {
		if qty <= 0 {
			s.lines = withoutLine(s.lines, id)
			return
		}
		for i := range s.lines {
			if s.lines[i].ID == id {
				s.lines[i].Quantity = qty
				return
			}
		}
	})
}

func (s *Store) ClearCart() {
	s.mutate("clear", func() {
		s.lines = []CartLine{}
	})
}

// ToggleWishlist adds item when absent, removes it when present, and reports
// whether it is wishlisted afterwards.
func (s *Store) ToggleWishlist(item WishlistEntry) bool {
	var added bool
	s.mutate("toggle_wishlist", func() {
		for i := range s.wishlist {
			if s.wishlist[i].ID == item.ID {
				s.wishlist = append(s.wishlist[:i:i], s.wishlist[i+1:]...)
				return
			}
		}
		s.wishlist = append(s.wishlist, item)
		added = true
	})
	return added
}

func (s *Store) IsWishlisted(id string) bool {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.wishlist {
		if entry.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) Cart() []CartLine {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLines(s.lines)
}

func (s *Store) Wishlist() []WishlistEntry {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyWishlist(s.wishlist)
}

// Total is the exact sum of price * quantity over every line.
func (s *Store) Total() decimal.Decimal {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.lines)
}

func (s *Store) Snapshot() Snapshot {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Lines:     copyLines(s.lines),
		Wishlist:  copyWishlist(s.wishlist),
		Total:     totalOf(s.lines),
		ItemCount: itemCountOf(s.lines),
	}
}

// Flush waits until every mutation made so far has reached the slot.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close persists any pending snapshot and stops the background writer.
// Mutations made through a handle after Close are written synchronously.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	return s.writer.close(ctx)
}

// release marks the store released when it has been idle for at least ttl
// at now. It reports false, leaving the store live, when a reader or a
// mutation touched it in the meantime.
func (s *Store) release(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return true
	}
	if s.IdleFor(now) < ttl {
		return false
	}
	s.released = true
	return true
}

// IdleFor reports how long ago the store was last read or mutated.
func (s *Store) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

func (s *Store) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// mutate applies fn under the lock and queues the resulting state for
// persistence while still holding it, so queued snapshots follow mutation order.
func (s *Store) mutate(op string, fn func()) {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.metrics.IncMutation(op)
	p := pendingWrite{
		lines:    copyLines(s.lines),
		wishlist: copyWishlist(s.wishlist),
	}
	if s.released {
		s.writeThrough(p)
		return
	}
	s.writer.enqueue(p)
}

// writeThrough persists p on the caller's goroutine. It serves handles that
// outlived their store's release by the registry.
func (s *Store) writeThrough(p pendingWrite) {
	start := time.Now()
	err := s.writer.write(p)
	s.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		s.logg.WarnErr(s.logCtx, "failed to persist cart mutation on released store", err)
	}
}

func withoutLine(lines []CartLine, id string) []CartLine {
	out := lines[:0:0]
	for _, line := range lines {
		if line.ID != id {
			out = append(out, line)
		}
	}
	return out
}
