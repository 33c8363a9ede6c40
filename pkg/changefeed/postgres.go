package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/lib/pq"
)

const listenerPingInterval = 90 * time.Second

// Postgres listens on a LISTEN/NOTIFY channel fed by table triggers (see the
// notify_catalog_change migration), so writes from any process are observed.
type Postgres struct {
	*fanout
	dsn          string
	channel      string
	minReconnect time.Duration
	maxReconnect time.Duration
}

func NewPostgres(dsn, channel string, minReconnect, maxReconnect time.Duration, logg *logger.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("postgres notify channel is required")
	}
	if minReconnect <= 0 {
		minReconnect = time.Second
	}
	if maxReconnect < minReconnect {
		maxReconnect = minReconnect
	}
	p := &Postgres{dsn: dsn, channel: channel, minReconnect: minReconnect, maxReconnect: maxReconnect}
	p.fanout = newFanout("postgres", p.connect, logg)
	return p, nil
}

// Publish is a no-op: the triggers already notify on every committed write.
func (p *Postgres) Publish(context.Context, Event) error {
	return nil
}

func (p *Postgres) connect(ctx context.Context) (<-chan Event, error) {
	listener := pq.NewListener(p.dsn, p.minReconnect, p.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logg.WarnErr(p.logg.WithField(ctx, "listener_event", int(ev)), "postgres listener event", err)
		}
	})
	if err := listener.Listen(p.channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", p.channel, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer listener.Close()
		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()
		for {
			var ev Event
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go func() { _ = listener.Ping() }()
				continue
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					// pq sends nil after re-establishing the connection
					ev = Event{Op: OpResync}
				} else {
					decoded, err := Decode([]byte(n.Extra))
					if err != nil {
						p.logg.WarnErr(ctx, "dropping malformed notify payload", err)
						continue
					}
					ev = decoded
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
