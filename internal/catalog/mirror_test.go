package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	mu    sync.Mutex
	items []models.Product
	err   error
	loads atomic.Int32
}

func (f *fakeProducts) set(items ...models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeProducts) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProducts) ListProducts(context.Context) ([]models.Product, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.items), nil
}

func (f *fakeProducts) GetProduct(_ context.Context, id string) (models.Product, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Product{}, false, f.err
	}
	for _, p := range f.items {
		if p.ID == id {
			return p, true, nil
		}
	}
	return models.Product{}, false, nil
}

type fakeOrders struct {
	items []models.Order
}

func (f *fakeOrders) ListOrders(context.Context) ([]models.Order, error) {
	return slices.Clone(f.items), nil
}

type failingFeed struct{}

func (failingFeed) Subscribe(context.Context) (<-chan changefeed.Event, error) {
	return nil, errors.New("feed unreachable")
}

func testProduct(id, name string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.NewFromInt(10), InStock: true}
}

type recorder[T any] struct {
	ch chan []T
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{ch: make(chan []T, 32)}
}

func (r *recorder[T]) fn(snapshot []T) {
	r.ch <- snapshot
}

func (r *recorder[T]) next(t *testing.T) []T {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func (r *recorder[T]) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected snapshot %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

type mirrorFixture struct {
	mirror   *Mirror
	feed     *changefeed.Memory
	products *fakeProducts
	orders   *fakeOrders
}

func newMirrorFixture(t *testing.T) mirrorFixture {
	t.Helper()
	feed := changefeed.NewMemory()
	products := &fakeProducts{}
	orders := &fakeOrders{}
	m, err := NewMirror(Options{
		Feed:       feed,
		Products:   products,
		Orders:     orders,
		Logger:     logger.Nop(),
		MinBackoff: time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Close()
		_ = feed.Close()
	})
	return mirrorFixture{mirror: m, feed: feed, products: products, orders: orders}
}

func TestNewMirrorValidatesDeps(t *testing.T) {
	_, err := NewMirror(Options{Products: &fakeProducts{}, Orders: &fakeOrders{}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = NewMirror(Options{Feed: changefeed.NewMemory(), Orders: &fakeOrders{}})
	assert.Error(t, err)
	_, err = NewMirror(Options{Feed: changefeed.NewMemory(), Products: &fakeProducts{}})
	assert.Error(t, err)
}

func TestSubscribeProductsDeliversSnapshotThenChanges(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)
	f.products.set(testProduct("1", "Lamp"))

	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(ctx, rec.fn)
	require.NoError(t, err)
	defer unsubscribe()

	first := rec.next(t)
	require.Len(t, first, 1)
	assert.Equal(t, "1", first[0].ID)

	f.products.set(testProduct("1", "Lamp"), testProduct("2", "Desk"))
	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionProducts, ID: "2", Op: changefeed.OpInsert}))

	second := rec.next(t)
	assert.Len(t, second, 2)
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)

	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(ctx, rec.fn)
	require.NoError(t, err)
	defer unsubscribe()
	rec.next(t)
	loads := f.products.loads.Load()

	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionOrders, Op: changefeed.OpInsert}))
	rec.none(t)
	assert.Equal(t, loads, f.products.loads.Load())

	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpResync}))
	rec.next(t)
}

func TestEmptySnapshotIsDelivered(t *testing.T) {
	f := newMirrorFixture(t)
	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(context.Background(), rec.fn)
	require.NoError(t, err)
	defer unsubscribe()

	snapshot := rec.next(t)
	assert.NotNil(t, snapshot)
	assert.Empty(t, snapshot)
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)
	f.products.set(testProduct("1", "Lamp"))

	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(ctx, rec.fn)
	require.NoError(t, err)
	rec.next(t)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, f.mirror.Subscribers()[changefeed.CollectionProducts])

	assert.Eventually(t, func() bool { return f.feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_ = f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionProducts})
	rec.none(t)
}

func TestSubscribersShareOneFeedSubscription(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)

	a, b := newRecorder[models.Product](), newRecorder[models.Product]()
	unsubA, err := f.mirror.SubscribeProducts(ctx, a.fn)
	require.NoError(t, err)
	unsubB, err := f.mirror.SubscribeProducts(ctx, b.fn)
	require.NoError(t, err)
	a.next(t)
	b.next(t)
	assert.Equal(t, 1, f.feed.Subscribers())

	unsubA()
	f.products.set(testProduct("9", "Mug"))
	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionProducts}))
	got := b.next(t)
	require.Len(t, got, 1)
	assert.Equal(t, "Mug", got[0].Name)
	a.none(t)
	unsubB()
}

func TestDeliveriesAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)
	f.products.set(testProduct("1", "Lamp"))

	a, b := newRecorder[models.Product](), newRecorder[models.Product]()
	unsubA, err := f.mirror.SubscribeProducts(ctx, a.fn)
	require.NoError(t, err)
	defer unsubA()
	unsubB, err := f.mirror.SubscribeProducts(ctx, b.fn)
	require.NoError(t, err)
	defer unsubB()

	first := a.next(t)
	first[0].Name = "changed"
	assert.Equal(t, "Lamp", b.next(t)[0].Name)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	f := newMirrorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	rec := newRecorder[models.Product]()
	_, err := f.mirror.SubscribeProducts(ctx, rec.fn)
	require.NoError(t, err)
	rec.next(t)

	cancel()
	assert.Eventually(t, func() bool {
		return f.mirror.Subscribers()[changefeed.CollectionProducts] == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeFailsWhenFeedUnreachable(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMirror(Options{
		Feed:     failingFeed{},
		Products: &fakeProducts{},
		Orders:   &fakeOrders{},
		Metrics:  metrics.NewMirrorMetrics(reg),
	})
	require.NoError(t, err)
	defer m.Close()

	_, err = m.SubscribeProducts(context.Background(), func([]models.Product) {})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 0, m.Subscribers()[changefeed.CollectionProducts])

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range families {
		if mf.GetName() == "mirror_subscription_failures_total" {
			for _, metric := range mf.GetMetric() {
				failures += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), failures)
}

func TestSubscribeFailsWhenInitialLoadFails(t *testing.T) {
	f := newMirrorFixture(t)
	f.products.fail(errors.New("db down"))

	_, err := f.mirror.SubscribeProducts(context.Background(), func([]models.Product) {})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Eventually(t, func() bool { return f.feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestReloadFailureKeepsSubscription(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)
	f.products.set(testProduct("1", "Lamp"))

	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(ctx, rec.fn)
	require.NoError(t, err)
	defer unsubscribe()
	rec.next(t)

	f.products.fail(errors.New("db down"))
	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionProducts}))
	rec.none(t)

	f.products.fail(nil)
	f.products.set(testProduct("2", "Desk"))
	require.NoError(t, f.feed.Publish(ctx, changefeed.Event{Collection: changefeed.CollectionProducts}))
	got := rec.next(t)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

// flakyFeed hands out subscriptions that the test can end.
type flakyFeed struct {
	mu    sync.Mutex
	chans []chan changefeed.Event
}

func (f *flakyFeed) Subscribe(context.Context) (<-chan changefeed.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan changefeed.Event, 4)
	f.chans = append(f.chans, ch)
	return ch, nil
}

func (f *flakyFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chans)
}

func (f *flakyFeed) endLatest() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.chans[len(f.chans)-1])
}

func TestFeedDropResubscribesAndReloads(t *testing.T) {
	feed := &flakyFeed{}
	products := &fakeProducts{}
	products.set(testProduct("1", "Lamp"))
	m, err := NewMirror(Options{
		Feed:       feed,
		Products:   products,
		Orders:     &fakeOrders{},
		MinBackoff: time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	defer m.Close()

	rec := newRecorder[models.Product]()
	unsubscribe, err := m.SubscribeProducts(context.Background(), rec.fn)
	require.NoError(t, err)
	defer unsubscribe()
	rec.next(t)

	products.set(testProduct("1", "Lamp"), testProduct("2", "Desk"))
	feed.endLatest()

	assert.Len(t, rec.next(t), 2)
	assert.Equal(t, 2, feed.count())
}

func TestSubscribeOrdersKeepsSourceOrder(t *testing.T) {
	f := newMirrorFixture(t)
	now := time.Now()
	f.orders.items = []models.Order{
		{ID: "b", CreatedAt: now},
		{ID: "a", CreatedAt: now.Add(-time.Hour)},
	}

	rec := newRecorder[models.Order]()
	unsubscribe, err := f.mirror.SubscribeOrders(context.Background(), rec.fn)
	require.NoError(t, err)
	defer unsubscribe()

	got := rec.next(t)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestOneShotReads(t *testing.T) {
	ctx := context.Background()
	f := newMirrorFixture(t)
	f.products.set(testProduct("1", "Lamp"))

	all, err := f.mirror.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	orders, err := f.mirror.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	p, found, err := f.mirror.GetProductByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Lamp", p.Name)

	_, found, err = f.mirror.GetProductByID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.mirror.GetProductByID(ctx, " ")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCloseDetachesSubscribers(t *testing.T) {
	f := newMirrorFixture(t)
	rec := newRecorder[models.Product]()
	unsubscribe, err := f.mirror.SubscribeProducts(context.Background(), rec.fn)
	require.NoError(t, err)
	rec.next(t)

	f.mirror.Close()
	unsubscribe()
	assert.Equal(t, 0, f.mirror.Subscribers()[changefeed.CollectionProducts])

	_, err = f.mirror.SubscribeProducts(context.Background(), rec.fn)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestExponentialBackoffStaysInBounds(t *testing.T) {
	b := exponentialBackoff(10*time.Millisecond, 100*time.Millisecond)
	for attempt := 1; attempt < 40; attempt++ {
		d := b(attempt)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
	assert.Less(t, b(1), 16*time.Millisecond)
}
