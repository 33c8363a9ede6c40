package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, slot Slot) *Registry {
	t.Helper()
	r, err := NewRegistry(RegistryParams{
		Config: config.CartConfig{
			KeyPrefix:    "vi-store",
			WriteTimeout: time.Second,
			IdleTTL:      time.Minute,
			SweepEvery:   time.Minute,
		},
		Slot:   slot,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func TestNewRegistryValidatesDeps(t *testing.T) {
	_, err := NewRegistry(RegistryParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewRegistry(RegistryParams{Slot: NewMemorySlot()})
	assert.Error(t, err)
}

func TestRegistryReturnsOneStorePerSession(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, NewMemorySlot())

	a, err := r.Open(ctx, "alice")
	require.NoError(t, err)
	again, err := r.Open(ctx, "alice")
	require.NoError(t, err)
	b, err := r.Open(ctx, "bob")
	require.NoError(t, err)

	a.AddToCart(item("1", "1"), 1)
	assert.Len(t, again.Cart(), 1)
	assert.Empty(t, b.Cart())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentOpenSharesLoad(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, NewMemorySlot())

	var wg sync.WaitGroup
	handles := make([]Handle, 20)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Open(ctx, "shared")
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for _, h := range handles[1:] {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsEmptySession(t *testing.T) {
	r := newTestRegistry(t, NewMemorySlot())
	_, err := r.Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestRegistrySweepReleasesIdleStoresAfterPersisting(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	reg := prometheus.NewRegistry()
	r := newTestRegistry(t, slot)
	r.metrics = metrics.NewCartMetrics(reg)
	gauge := func() float64 {
		mfs, err := reg.Gather()
		require.NoError(t, err)
		for _, mf := range mfs {
			if mf.GetName() == "cart_open_stores" {
				return mf.GetMetric()[0].GetGauge().GetValue()
			}
		}
		return -1
	}

	h, err := r.Open(ctx, "alice")
	require.NoError(t, err)
	h.AddToCart(item("1", "2.5"), 2)

	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1.0, gauge())

	r.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, r.Sweep(ctx))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0.0, gauge())

	// reopening loads what the closed store persisted
	r.now = time.Now
	h, err = r.Open(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, h.Cart(), 1)
	assert.Equal(t, 2, h.Cart()[0].Quantity)
}

func TestRegistryFlushAndClose(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	r := newTestRegistry(t, slot)

	for _, session := range []string{"a", "b"} {
		h, err := r.Open(ctx, session)
		require.NoError(t, err)
		h.ToggleWishlist(item(session, "1"))
	}
	require.NoError(t, r.Flush(ctx))

	raw, err := slot.Get(ctx, "vi-store-wishlist:b")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"b"`)

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	r := newTestRegistry(t, NewMemorySlot())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistryHandleHeldAcrossSweepKeepsMutations(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	r := newTestRegistry(t, slot)

	h, err := r.Open(ctx, "s1")
	require.NoError(t, err)

	r.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.Equal(t, 1, r.Sweep(ctx))

	h.AddToCart(item("1", "10"), 1)
	assert.Len(t, h.Cart(), 1)

	reopened, err := r.Open(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, reopened.Cart(), 1)
	assert.Equal(t, "1", reopened.Cart()[0].ID)
}

func TestRegistryOpenResetsIdleClock(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, NewMemorySlot())

	h, err := r.Open(ctx, "s1")
	require.NoError(t, err)
	h.(*Store).lastUsed.Store(time.Now().Add(-time.Hour).UnixNano())

	_, err = r.Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 1, r.Len())
}

func TestStoreReleaseSkipsRecentlyUsedStore(t *testing.T) {
	s := openStore(t, NewMemorySlot())
	now := time.Now()

	assert.False(t, s.release(now, time.Minute))
	assert.True(t, s.release(now.Add(2*time.Minute), time.Minute))
	assert.True(t, s.release(now, time.Minute), "released stays released")
}
