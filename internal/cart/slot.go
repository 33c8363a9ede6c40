package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/redis"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSlotMiss is returned by Slot.Get when nothing was ever written under key.
var ErrSlotMiss = errors.New("cart slot miss")

// Slot is the key-value storage that holds serialized cart and wishlist lists.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Keys returns the cart and wishlist slot keys for a session. An empty session
// maps to the bare keys.
func Keys(prefix, session string) (cartKey, wishlistKey string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "vi-store"
	}
	cartKey = prefix + "-cart"
	wishlistKey = prefix + "-wishlist"
	if session = strings.TrimSpace(session); session != "" {
		cartKey += ":" + session
		wishlistKey += ":" + session
	}
	return cartKey, wishlistKey
}

// NewSlot picks the slot implementation named by cfg.Store.
func NewSlot(cfg config.CartConfig, kv KeyValue, conn *gorm.DB) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case config.CartStoreRedis:
		if kv == nil {
			return nil, fmt.Errorf("cart store %q requires a redis client", cfg.Store)
		}
		return NewRedisSlot(kv), nil
	case config.CartStoreDB:
		if conn == nil {
			return nil, fmt.Errorf("cart store %q requires a database", cfg.Store)
		}
		return NewDBSlot(conn), nil
	case config.CartStoreMemory:
		return NewMemorySlot(), nil
	}
	return nil, fmt.Errorf("unsupported cart store %q", cfg.Store)
}

// MemorySlot keeps payloads in process memory.
type MemorySlot struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string][]byte)}
}

func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrSlotMiss
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// KeyValue is the subset of the redis client used by RedisSlot.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisSlot stores payloads as plain redis strings without expiry.
type RedisSlot struct {
	kv KeyValue
}

func NewRedisSlot(kv KeyValue) *RedisSlot {
	return &RedisSlot{kv: kv}
}

func (r *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.kv.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrSlotMiss
		}
		return nil, err
	}
	return []byte(v), nil
}

func (r *RedisSlot) Put(ctx context.Context, key string, value []byte) error {
	return r.kv.Set(ctx, key, string(value), 0)
}

type snapshotRow struct {
	Key       string `gorm:"column:key;primaryKey"`
	Payload   string `gorm:"column:payload"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "cart_snapshots" }

// DBSlot upserts payloads into the cart_snapshots table.
type DBSlot struct {
	db *gorm.DB
}

func NewDBSlot(db *gorm.DB) *DBSlot {
	return &DBSlot{db: db}
}

func (d *DBSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var row snapshotRow
	err := d.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotMiss
		}
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (d *DBSlot) Put(ctx context.Context, key string, value []byte) error {
	row := snapshotRow{Key: key, Payload: string(value), UpdatedAt: time.Now().UTC()}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
}
