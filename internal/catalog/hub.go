package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
)

var errMirrorClosed = errors.New("catalog mirror closed")

// hub fans one collection out to its subscribers. The change feed
// subscription and the pump goroutine exist only while at least one
// subscriber is attached.
type hub[T any] struct {
	collection changefeed.Collection
	load       func(ctx context.Context) ([]T, error)
	feed       changefeed.Subscriber
	logg       *logger.Logger
	metrics    *metrics.MirrorMetrics
	backoff    backoff

	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	latest []T
	pump   *pump
	closed bool
}

type pump struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// subscriber holds at most one undelivered snapshot. A newer snapshot
// replaces an older one that the callback has not picked up yet.
type subscriber[T any] struct {
	fn      func([]T)
	mailbox chan []T
	stop    chan struct{}
	once    sync.Once
}

func newHub[T any](collection changefeed.Collection, load func(context.Context) ([]T, error), feed changefeed.Subscriber, logg *logger.Logger, m *metrics.MirrorMetrics, b backoff) *hub[T] {
	return &hub[T]{
		collection: collection,
		load:       load,
		feed:       feed,
		logg:       logg,
		metrics:    m,
		backoff:    b,
		subs:       make(map[uint64]*subscriber[T]),
	}
}

// subscribe attaches fn. The current snapshot is delivered right away and a
// fresh one after every change; ctx ending detaches the subscriber too.
func (h *hub[T]) subscribe(ctx context.Context, fn func([]T)) (Unsubscribe, error) {
	if fn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriber callback is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errMirrorClosed, "subscribe "+string(h.collection))
	}
	if h.pump == nil {
		if err := h.startLocked(ctx); err != nil {
			h.metrics.IncFailure(string(h.collection))
			return nil, err
		}
	}

	id := h.nextID
	h.nextID++
	sub := &subscriber[T]{
		fn:      fn,
		mailbox: make(chan []T, 1),
		stop:    make(chan struct{}),
	}
	h.subs[id] = sub
	h.metrics.SetSubscribers(string(h.collection), len(h.subs))
	sub.offer(slices.Clone(h.latest))
	h.metrics.AddDeliveries(string(h.collection), 1)
	go sub.run()

	unsubscribe := func() {
		sub.once.Do(func() {
			close(sub.stop)
			h.detach(id)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.stop:
		}
	}()
	return unsubscribe, nil
}

// startLocked opens the feed subscription before the first load so no change
// committed in between is missed.
func (h *hub[T]) startLocked(ctx context.Context) error {
	pctx, cancel := context.WithCancel(context.Background())
	events, err := h.feed.Subscribe(pctx)
	if err != nil {
		cancel()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to "+string(h.collection)+" changes")
	}
	snapshot, err := h.timedLoad(ctx)
	if err != nil {
		cancel()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+string(h.collection))
	}
	h.latest = snapshot
	p := &pump{ctx: pctx, cancel: cancel, done: make(chan struct{})}
	h.pump = p
	go h.run(p, events)
	return nil
}

func (h *hub[T]) detach(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	h.metrics.SetSubscribers(string(h.collection), len(h.subs))
	if len(h.subs) == 0 && h.pump != nil {
		h.pump.cancel()
		h.pump = nil
		h.latest = nil
	}
}

func (h *hub[T]) run(p *pump, events <-chan changefeed.Event) {
	defer close(p.done)
	ctx := h.logg.WithField(p.ctx, "collection", string(h.collection))
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if events = h.resubscribe(ctx, p); events == nil {
					return
				}
				h.reload(ctx, p)
				continue
			}
			if !ev.Touches(h.collection) {
				continue
			}
			drain(events)
			h.reload(ctx, p)
		}
	}
}

// resubscribe reopens the feed after it ended, backing off between attempts.
// It returns nil once the pump is stopped.
func (h *hub[T]) resubscribe(ctx context.Context, p *pump) <-chan changefeed.Event {
	h.logg.Warn(ctx, "change feed subscription ended, reconnecting")
	for attempt := 1; ; attempt++ {
		if !sleep(p.ctx, h.backoff(attempt)) {
			return nil
		}
		events, err := h.feed.Subscribe(p.ctx)
		if err == nil {
			return events
		}
		h.metrics.IncFailure(string(h.collection))
		h.logg.WarnErr(h.logg.WithField(ctx, "attempt", attempt), "change feed resubscribe failed", err)
	}
}

func (h *hub[T]) reload(ctx context.Context, p *pump) {
	snapshot, err := h.timedLoad(p.ctx)
	if err != nil {
		if p.ctx.Err() != nil {
			return
		}
		h.metrics.IncFailure(string(h.collection))
		h.logg.WarnErr(ctx, "snapshot reload failed", err)
		return
	}
	h.broadcast(p, snapshot)
}

func (h *hub[T]) timedLoad(ctx context.Context) ([]T, error) {
	start := time.Now()
	snapshot, err := h.load(ctx)
	h.metrics.ObserveReload(string(h.collection), time.Since(start))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = []T{}
	}
	return snapshot, nil
}

func (h *hub[T]) broadcast(p *pump, snapshot []T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pump != p || p.ctx.Err() != nil {
		return
	}
	h.latest = snapshot
	for _, sub := range h.subs {
		sub.offer(slices.Clone(snapshot))
	}
	h.metrics.AddDeliveries(string(h.collection), len(h.subs))
}

// subscribers reports how many readers are attached.
func (h *hub[T]) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub[T]) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	p := h.pump
	h.pump = nil
	subs := h.subs
	h.subs = make(map[uint64]*subscriber[T])
	h.metrics.SetSubscribers(string(h.collection), 0)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.stop) })
	}
	if p != nil {
		p.cancel()
		<-p.done
	}
}

// offer replaces any pending snapshot. Callers hold the hub lock, so there is
// a single producer and the send never blocks.
func (s *subscriber[T]) offer(snapshot []T) {
	select {
	case <-s.mailbox:
	default:
	}
	select {
	case s.mailbox <- snapshot:
	default:
	}
}

func (s *subscriber[T]) run() {
	for {
		select {
		case <-s.stop:
			return
		case snapshot := <-s.mailbox:
			select {
			case <-s.stop:
				return
			default:
			}
			s.fn(snapshot)
		}
	}
}

func drain(events <-chan changefeed.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
