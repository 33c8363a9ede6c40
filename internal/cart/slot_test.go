package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vistore-backend/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = fmt.Sprint(value)
	return nil
}

func TestRedisSlot(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	slot := NewRedisSlot(kv)

	_, err := slot.Get(ctx, "vi-store-cart")
	assert.ErrorIs(t, err, ErrSlotMiss)

	require.NoError(t, slot.Put(ctx, "vi-store-cart", []byte(`[]`)))
	raw, err := slot.Get(ctx, "vi-store-cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))

	kv.err = errors.New("connection refused")
	_, err = slot.Get(ctx, "vi-store-cart")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotMiss)
}

func TestRedisSlotBackedStoreSurvivesUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.err = errors.New("connection refused")

	s := openStore(t, NewRedisSlot(kv))
	s.AddToCart(item("1", "4"), 1)
	require.NoError(t, s.Flush(ctx))
	assert.Len(t, s.Cart(), 1)
}

func TestDBSlotUpserts(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	slot := NewDBSlot(client.DB())

	_, err := slot.Get(ctx, "vi-store-cart:s1")
	assert.ErrorIs(t, err, ErrSlotMiss)

	require.NoError(t, slot.Put(ctx, "vi-store-cart:s1", []byte(`[{"id":"1"}]`)))
	require.NoError(t, slot.Put(ctx, "vi-store-cart:s1", []byte(`[{"id":"2"}]`)))

	raw, err := slot.Get(ctx, "vi-store-cart:s1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"2"}]`, string(raw))

	var count int64
	require.NoError(t, client.DB().Table("cart_snapshots").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDBSlotRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	slot := NewDBSlot(dbtest.Open(t).DB())

	s := openStore(t, slot)
	s.AddToCart(item("7", "45.99"), 3)
	s.ToggleWishlist(item("8", "69.99"))
	require.NoError(t, s.Flush(ctx))

	reopened := openStore(t, slot)
	assert.Equal(t, s.Cart(), reopened.Cart())
	assert.Equal(t, s.Wishlist(), reopened.Wishlist())
}

func TestNewSlot(t *testing.T) {
	slot, err := NewSlot(config.CartConfig{Store: "memory"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemorySlot{}, slot)

	slot, err = NewSlot(config.CartConfig{Store: "redis"}, newFakeKV(), nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisSlot{}, slot)

	_, err = NewSlot(config.CartConfig{Store: "redis"}, nil, nil)
	assert.Error(t, err)
	_, err = NewSlot(config.CartConfig{Store: "db"}, nil, nil)
	assert.Error(t, err)
	_, err = NewSlot(config.CartConfig{Store: "etcd"}, nil, nil)
	assert.Error(t, err)
}
