// Package changefeed carries "collection changed" notifications from writers to
// the catalog mirror. Events are signals, not payloads: receivers reload the
// collection snapshot rather than applying a delta.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names a mirrored document collection.
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionOrders   Collection = "orders"
	CollectionSettings Collection = "settings"
)

// Op describes the write that produced the event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpResync asks every receiver to reload; sent after an upstream reconnect
	// because notifications may have been missed while disconnected.
	OpResync Op = "resync"
)

// ErrClosed is returned by a feed after Close.
var ErrClosed = errors.New("changefeed closed")

type Event struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id,omitempty"`
	Op         Op         `json:"op,omitempty"`
}

// Touches reports whether a receiver of c should reload on this event.
func (e Event) Touches(c Collection) bool {
	return e.Op == OpResync || e.Collection == "" || e.Collection == c
}

func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding change event: %w", err)
	}
	if ev.Collection == "" && ev.Op != OpResync {
		return Event{}, fmt.Errorf("change event missing collection")
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber delivers events until ctx is done, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type Feed interface {
	Publisher
	Subscriber
	Close() error
}
