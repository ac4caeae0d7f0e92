package cdpcontrol

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/runtime"
)

const defaultHookQueue = 64

// hookStream owns the delivery goroutine for one chart's hook events.
type hookStream struct {
	chartID string
	fn      func(HookEvent)

	events   chan HookEvent
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	delivered atomic.Int64
	dropped   atomic.Int64
}

// HookStats counts what a stream has handled so far.
type HookStats struct {
	ChartID   string `json:"chart_id"`
	Delivered int64  `json:"delivered"`
	Dropped   int64  `json:"dropped"`
}

// WatchHooks routes the chart's binding calls to fn on a dedicated goroutine.
// Moves are dropped while the queue is full; other events are never dropped.
// A second call for the same chart replaces the first. The returned func
// stops delivery and waits for fn to return.
func (c *Client) WatchHooks(chartID string, queue int, fn func(HookEvent)) func() {
	if queue <= 0 {
		queue = defaultHookQueue
	}
	s := &hookStream{
		chartID: chartID,
		fn:      fn,
		events:  make(chan HookEvent, queue),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.deliverLoop()

	c.streamsMu.Lock()
	prev := c.streams[chartID]
	c.streams[chartID] = s
	c.streamsMu.Unlock()
	if prev != nil {
		prev.stop()
	}

	return func() {
		c.streamsMu.Lock()
		if c.streams[chartID] == s {
			delete(c.streams, chartID)
		}
		c.streamsMu.Unlock()
		s.stop()
	}
}

// HookStats reports per-chart delivery counters.
func (c *Client) HookStats() []HookStats {
	c.streamsMu.RLock()
	defer c.streamsMu.RUnlock()
	out := make([]HookStats, 0, len(c.streams))
	for _, s := range c.streams {
		out = append(out, HookStats{ChartID: s.chartID, Delivered: s.delivered.Load(), Dropped: s.dropped.Load()})
	}
	return out
}

// handleBindingCalled is called from the connection's readLoop and must never block:
// the delivery goroutine itself waits on CDP responses from that loop.
func (c *Client) handleBindingCalled(sessionID string, params json.RawMessage) {
	var call runtime.EventBindingCalled
	if err := json.Unmarshal(params, &call); err != nil || call.Name != bindingName {
		return
	}
	chartID, ok := c.chartForSession(sessionID)
	if !ok {
		slog.Debug("cdpcontrol binding call from unknown session", "session_id", sessionID)
		return
	}
	c.streamsMu.RLock()
	s := c.streams[chartID]
	c.streamsMu.RUnlock()
	if s == nil {
		return
	}

	var evt HookEvent
	if err := json.Unmarshal([]byte(call.Payload), &evt); err != nil {
		slog.Debug("cdpcontrol bad hook payload", "chart_id", chartID, "error", err)
		return
	}
	s.offer(evt)
}

func (s *hookStream) offer(evt HookEvent) {
	select {
	case s.events <- evt:
		return
	case <-s.done:
		return
	default:
	}
	if evt.Type == HookMouseMove {
		s.dropped.Add(1)
		return
	}
	// Queue full: hand off so the read loop keeps running.
	go func() {
		select {
		case s.events <- evt:
		case <-s.done:
		}
	}()
}

func (s *hookStream) deliverLoop() {
	defer s.wg.Done()
	for {
		select {
		case evt := <-s.events:
			s.fn(evt)
			s.delivered.Add(1)
		case <-s.done:
			return
		}
	}
}

func (s *hookStream) stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}
