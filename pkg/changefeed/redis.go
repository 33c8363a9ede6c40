package changefeed

import (
	"context"
	"fmt"

	"github.com/angelmondragon/vistore-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

type redisBroker interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// Redis moves events over a redis pub/sub channel.
type Redis struct {
	*fanout
	client  redisBroker
	channel string
}

func NewRedis(client redisBroker, channel string, logg *logger.Logger) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("redis change channel is required")
	}
	r := &Redis{client: client, channel: channel}
	r.fanout = newFanout("redis", r.connect, logg)
	return r, nil
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, string(payload))
}

func (r *Redis) connect(ctx context.Context) (<-chan Event, error) {
	ps, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := Decode([]byte(msg.Payload))
				if err != nil {
					r.logg.WarnErr(ctx, "dropping malformed change event", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
