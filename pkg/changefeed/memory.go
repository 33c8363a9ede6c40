package changefeed

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Memory is an in-process broadcast feed. It also backs the fan-out of every
// remote driver so one upstream subscription serves many local receivers.
type Memory struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan Event)}
}

// Publish never blocks: a receiver whose buffer is full already has a reload
// pending, so dropping the extra signal loses nothing.
func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	id := m.next
	m.next++
	ch := make(chan Event, subscriberBuffer)
	m.subs[id] = ch

	go func() {
		<-ctx.Done()
		m.drop(id)
	}()
	return ch, nil
}

func (m *Memory) drop(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of live receivers.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}
