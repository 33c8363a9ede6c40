package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"go.uber.org/multierr"
)

var errWriterClosed = errors.New("cart writer closed")

type pendingWrite struct {
	lines    []CartLine
	wishlist []WishlistEntry
}

// writer persists store snapshots off the request path. Only the newest
// pending snapshot is kept, so a burst of mutations costs one write.
type writer struct {
	slot        Slot
	cartKey     string
	wishlistKey string
	timeout     time.Duration
	logg        *logger.Logger
	logCtx      context.Context
	metrics     *metrics.CartMetrics

	mu      sync.Mutex
	pending *pendingWrite

	wake    chan struct{}
	flushes chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newWriter(logCtx context.Context, slot Slot, cartKey, wishlistKey string, timeout time.Duration, logg *logger.Logger, m *metrics.CartMetrics) *writer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	w := &writer{
		slot:        slot,
		cartKey:     cartKey,
		wishlistKey: wishlistKey,
		timeout:     timeout,
		logg:        logg,
		logCtx:      logCtx,
		metrics:     m,
		wake:        make(chan struct{}, 1),
		flushes:     make(chan chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue replaces any pending snapshot and never blocks.
func (w *writer) enqueue(p pendingWrite) {
	w.mu.Lock()
	w.pending = &p
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) take() *pendingWrite {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = nil
	return p
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.writePending()
		case reply := <-w.flushes:
			w.writePending()
			close(reply)
		case <-w.stop:
			w.writePending()
			return
		}
	}
}

func (w *writer) writePending() {
	p := w.take()
	if p == nil {
		return
	}
	start := time.Now()
	err := w.write(*p)
	w.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		w.logg.WarnErr(w.logCtx, "failed to persist cart snapshot", err)
	}
}

func (w *writer) write(p pendingWrite) error {
	ctx, cancel := context.WithTimeout(w.logCtx, w.timeout)
	defer cancel()

	var errs error
	if payload, err := encodeLines(p.lines); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		errs = multierr.Append(errs, w.slot.Put(ctx, w.cartKey, payload))
	}
	if payload, err := encodeWishlist(p.wishlist); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		errs = multierr.Append(errs, w.slot.Put(ctx, w.wishlistKey, payload))
	}
	return errs
}

// flush blocks until every snapshot enqueued before the call has been written.
func (w *writer) flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case w.flushes <- reply:
	case <-w.done:
		return errWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close writes whatever is pending and stops the goroutine.
func (w *writer) close(ctx context.Context) error {
	w.once.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
