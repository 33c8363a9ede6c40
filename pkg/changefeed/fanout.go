package changefeed

import (
	"context"
	"sync"

	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

// connectFunc opens the remote subscription. The returned channel is closed when
// the upstream ends.
type connectFunc func(ctx context.Context) (<-chan Event, error)

// fanout shares a single upstream subscription between local receivers. The
// upstream is opened on the first Subscribe and reopened by the next Subscribe
// after it ends.
type fanout struct {
	name    string
	connect connectFunc
	logg    *logger.Logger
	local   *Memory

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func newFanout(name string, connect connectFunc, logg *logger.Logger) *fanout {
	if logg == nil {
		logg = logger.Nop()
	}
	return &fanout{name: name, connect: connect, logg: logg, local: NewMemory()}
}

func (f *fanout) Subscribe(ctx context.Context) (<-chan Event, error) {
	if err := f.ensureUpstream(); err != nil {
		return nil, err
	}
	return f.local.Subscribe(ctx)
}

func (f *fanout) ensureUpstream() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	src, err := f.connect(ctx)
	if err != nil {
		cancel()
		return err
	}
	f.running = true
	f.cancel = cancel

	go func() {
		for ev := range src {
			_ = f.local.Publish(ctx, ev)
		}
		if ctx.Err() == nil {
			f.logg.Warn(f.logg.WithField(context.Background(), "driver", f.name), "change feed upstream ended")
		}
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
		cancel()
	}()
	return nil
}

func (f *fanout) Close() error {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
	return f.local.Close()
}
