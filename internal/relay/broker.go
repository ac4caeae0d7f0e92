package relay

import (
	"sync"
	"sync/atomic"
)

const (
	subscriberBufSize = 256
	historySize       = 128
)

// Event is one sync event on its way to SSE clients.
type Event struct {
	ID      int64
	Feed    string
	Payload string
}

type subscriber struct {
	ch    chan Event
	feeds map[string]bool // nil accepts every feed
}

func (s *subscriber) wants(feed string) bool {
	return s.feeds == nil || s.feeds[feed]
}

// Subscription is one client's registration with the broker.
type Subscription struct {
	ID     int64
	Events <-chan Event
	// Backlog holds retained events newer than the requested resume id, in
	// publish order.
	Backlog []Event
}

// Broker fans sync events out to SSE clients and keeps the most recent ones
// so a reconnecting client can resume where it left off.
type Broker struct {
	mu          sync.Mutex
	subscribers map[int64]*subscriber
	history     []Event
	seq         int64

	nextID  atomic.Int64
	clients atomic.Int64
	dropped atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]*subscriber),
		history:     make([]Event, 0, historySize),
	}
}

// Subscribe registers a client for feeds; an empty list means all feeds.
// When after is positive, retained events with a larger id are returned as
// the backlog. The backlog and the live channel never overlap or skip.
func (b *Broker) Subscribe(feeds []string, after int64) Subscription {
	s := &subscriber{ch: make(chan Event, subscriberBufSize)}
	if len(feeds) > 0 {
		s.feeds = make(map[string]bool, len(feeds))
		for _, f := range feeds {
			s.feeds[f] = true
		}
	}
	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	var backlog []Event
	if after > 0 {
		for _, evt := range b.history {
			if evt.ID > after && s.wants(evt.Feed) {
				backlog = append(backlog, evt)
			}
		}
	}
	b.subscribers[id] = s
	b.clients.Add(1)
	return Subscription{ID: id, Events: s.ch, Backlog: backlog}
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	b.clients.Add(-1)
	close(s.ch)
}

// Publish stamps evt with the next sequence number, retains it and offers it
// to every interested subscriber without blocking. It returns the id.
func (b *Broker) Publish(evt Event) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	evt.ID = b.seq
	if len(b.history) == historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:historySize-1]
	}
	b.history = append(b.history, evt)

	for _, s := range b.subscribers {
		if !s.wants(evt.Feed) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
	return evt.ID
}

func (b *Broker) ClientCount() int { return int(b.clients.Load()) }

// Dropped counts deliveries skipped because a subscriber's buffer was full.
func (b *Broker) Dropped() int64 { return b.dropped.Load() }
