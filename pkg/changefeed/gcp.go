package changefeed

import (
	"context"
	"fmt"
	"sync"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

type catalogPubSub interface {
	CatalogPublisher() *gpubsub.Publisher
	CatalogSubscriber() *gpubsub.Subscriber
}

// GCP carries events over a Cloud Pub/Sub topic. Each API instance needs its own
// subscription on the topic, otherwise instances compete for messages.
type GCP struct {
	*fanout
	client catalogPubSub

	pubOnce sync.Once
	pub     *gpubsub.Publisher
}

func NewGCP(client catalogPubSub, logg *logger.Logger) (*GCP, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	g := &GCP{client: client}
	g.fanout = newFanout("gcp", g.connect, logg)
	return g, nil
}

func (g *GCP) publisher() *gpubsub.Publisher {
	g.pubOnce.Do(func() {
		g.pub = g.client.CatalogPublisher()
	})
	return g.pub
}

func (g *GCP) Publish(ctx context.Context, ev Event) error {
	pub := g.publisher()
	if pub == nil {
		return fmt.Errorf("catalog topic not configured")
	}
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	res := pub.Publish(ctx, &gpubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"collection": string(ev.Collection), "op": string(ev.Op)},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing change event: %w", err)
	}
	return nil
}

func (g *GCP) connect(ctx context.Context) (<-chan Event, error) {
	sub := g.client.CatalogSubscriber()
	if sub == nil {
		return nil, fmt.Errorf("catalog subscription not configured")
	}
	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		err := sub.Receive(ctx, func(msgCtx context.Context, msg *gpubsub.Message) {
			ev, err := Decode(msg.Data)
			// malformed messages are acked so they are not redelivered forever
			msg.Ack()
			if err != nil {
				g.logg.WarnErr(msgCtx, "dropping malformed change event", err)
				return
			}
			select {
			case out <- ev:
			case <-msgCtx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			g.logg.Error(ctx, "pubsub receive stopped", err)
		}
	}()
	return out, nil
}

func (g *GCP) Close() error {
	if g.pub != nil {
		g.pub.Stop()
	}
	return g.fanout.Close()
}
