package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// RegistryParams groups dependencies for the cart registry.
type RegistryParams struct {
	Config  config.CartConfig
	Slot    Slot
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// Registry owns one Store per shopper session. Stores are loaded on first use
// and released after sitting idle for Config.IdleTTL.
type Registry struct {
	cfg     config.CartConfig
	slot    Slot
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mu     sync.Mutex
	stores map[string]*Store
	loads  singleflight.Group
	now    func() time.Time
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Slot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart slot is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Registry{
		cfg:     params.Config,
		slot:    params.Slot,
		logg:    params.Logger,
		metrics: params.Metrics,
		stores:  make(map[string]*Store),
		now:     time.Now,
	}, nil
}

// Open returns the store for session, loading it from the slot on first use.
// Concurrent opens of the same session share one load.
func (r *Registry) Open(ctx context.Context, session string) (Handle, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if s := r.acquire(session); s != nil {
		return s, nil
	}

	v, err, _ := r.loads.Do(session, func() (any, error) {
		if s := r.acquire(session); s != nil {
			return s, nil
		}
		s, err := Open(ctx, Options{
			Session:      session,
			KeyPrefix:    r.cfg.KeyPrefix,
			Slot:         r.slot,
			WriteTimeout: r.cfg.WriteTimeout,
			Logger:       r.logg,
			Metrics:      r.metrics,
		})
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.stores[session] = s
		n := len(r.stores)
		r.mu.Unlock()
		r.metrics.SetOpenStores(n)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// acquire returns the held store for session and marks it used while the
// registry lock keeps Sweep from deciding on it concurrently.
func (r *Registry) acquire(session string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stores[session]
	if s != nil {
		s.touch()
	}
	return s
}

// Len reports how many stores are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep closes and forgets stores idle for at least Config.IdleTTL and
// returns how many were released.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	idle := make(map[string]*Store)
	for session, s := range r.stores {
		if s.IdleFor(now) >= r.cfg.IdleTTL && s.release(now, r.cfg.IdleTTL) {
			idle[session] = s
			delete(r.stores, session)
		}
	}
	n := len(r.stores)
	r.mu.Unlock()
	r.metrics.SetOpenStores(n)

	for session, s := range idle {
		if err := s.Close(ctx); err != nil {
			r.logg.WarnErr(r.logg.WithSessionID(ctx, session), "failed to close idle cart store", err)
		}
	}
	return len(idle)
}

// Run sweeps idle stores every Config.SweepEvery until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	every := r.cfg.SweepEvery
	if every <= 0 {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "released", n), "swept idle cart stores")
			}
		}
	}
}

// Flush waits for every held store's pending writes.
func (r *Registry) Flush(ctx context.Context) error {
	var errs error
	for _, s := range r.snapshotStores() {
		errs = multierr.Append(errs, s.Flush(ctx))
	}
	return errs
}

// Close persists and closes every held store.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()
	r.metrics.SetOpenStores(0)

	var errs error
	for _, s := range stores {
		errs = multierr.Append(errs, s.Close(ctx))
	}
	return errs
}

func (r *Registry) snapshotStores() []*Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	return out
}
