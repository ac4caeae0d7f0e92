package crosshair

import (
	"sync/atomic"
	"time"
)

// EventKind names what an Event reports.
type EventKind string

const (
	EventCrosshair        EventKind = "crosshair"
	EventReset            EventKind = "reset"
	EventScroll           EventKind = "scroll"
	EventEvict            EventKind = "evict"
	EventHistoryExhausted EventKind = "history_exhausted"
)

// Event is emitted to the Observer after a gesture has been applied.
type Event struct {
	Kind       EventKind `json:"kind"`
	Key        string    `json:"key"`
	InstanceID string    `json:"instance_id"`
	Time       time.Time `json:"time,omitzero"`
	Price      float64   `json:"price,omitempty"`
	Modifier   bool      `json:"modifier,omitempty"`
	Peers      int       `json:"peers,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Observer receives sync events. It must not block.
type Observer func(Event)

// Coordinator is the state shared by every overlay of a process: the
// registry, the scroll suppression counter, the clock and the observer.
type Coordinator struct {
	registry *Registry
	suppress atomic.Int64
	now      func() time.Time
	location *time.Location
	observer Observer
}

type CoordinatorOption func(*Coordinator)

// WithClock replaces time.Now for move throttling.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithLocation sets the zone readout times are rendered in.
func WithLocation(loc *time.Location) CoordinatorOption {
	return func(c *Coordinator) { c.location = loc }
}

func WithObserver(obs Observer) CoordinatorOption {
	return func(c *Coordinator) { c.observer = obs }
}

func WithRegistry(r *Registry) CoordinatorOption {
	return func(c *Coordinator) { c.registry = r }
}

func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	return c
}

func (c *Coordinator) Registry() *Registry { return c.registry }

// PendingScrolls is the number of peer scroll callbacks still expected to
// arrive from a scroll this process triggered.
func (c *Coordinator) PendingScrolls() int64 { return c.suppress.Load() }

func (c *Coordinator) armSuppression(n int) {
	c.suppress.Store(int64(n))
}

// consumeSuppression decrements the counter if it is positive and reports
// whether it did.
func (c *Coordinator) consumeSuppression() bool {
	for {
		cur := c.suppress.Load()
		if cur <= 0 {
			return false
		}
		if c.suppress.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

func (c *Coordinator) emit(evt Event) {
	if c.observer != nil {
		c.observer(evt)
	}
}
