package tvhost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
)

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(10 * time.Millisecond)
	return c.now
}

func newTestAttacher(host Host, opts OptionsFunc) (*Attacher, *crosshair.Coordinator) {
	clock := &tickClock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	coord := crosshair.NewCoordinator(crosshair.WithClock(clock.Now))
	return NewAttacher(host, coord, AttacherConfig{Options: opts}), coord
}

func attachedByChart(a *Attacher) map[string]AttachedInfo {
	out := map[string]AttachedInfo{}
	for _, info := range a.Attached() {
		out[info.ChartID] = info
	}
	return out
}

func overlayFor(t *testing.T, coord *crosshair.Coordinator, symbol string) *crosshair.Overlay {
	t.Helper()
	o, ok := coord.Registry().Lookup(crosshair.ChartKey{Symbol: symbol, Timeframe: "60", ChartType: "Candles"})
	if !ok {
		t.Fatalf("no overlay registered for %s", symbol)
	}
	return o
}

func TestAttacherSyncAttachesNewCharts(t *testing.T) {
	host := newFakeHost()
	host.addTab("c1", "FX:EURUSD", "60", 1)
	host.addTab("c2", "FX:GBPUSD", "60", 1)
	a, coord := newTestAttacher(host, nil)

	if err := a.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got, want := coord.Registry().Len(), 2; got != want {
		t.Fatalf("registry len = %d, want %d", got, want)
	}
	attached := attachedByChart(a)
	if got, want := attached["c1"].Key.Symbol, "FX:EURUSD"; got != want {
		t.Fatalf("c1 symbol = %q, want %q", got, want)
	}
	if len(host.watchers) != 2 {
		t.Fatalf("watchers = %d, want 2", len(host.watchers))
	}

	// A second sync with nothing changed keeps the same instances.
	if err := a.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got, want := attachedByChart(a)["c1"].InstanceID, attached["c1"].InstanceID; got != want {
		t.Fatalf("instance changed on idle resync: %q -> %q", want, got)
	}
	if got, want := host.count("install-hooks"), 4; got != want {
		t.Fatalf("install-hooks calls = %d, want %d", got, want)
	}
}

func TestAttacherReattachesOnIdentityChange(t *testing.T) {
	host := newFakeHost()
	tab := host.addTab("c1", "FX:EURUSD", "60", 1)
	a, coord := newTestAttacher(host, nil)
	ctx := context.Background()

	if err := a.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	old := overlayFor(t, coord, "FX:EURUSD")

	host.mu.Lock()
	tab.identity.Symbol = "FX:USDJPY"
	tab.symbol.Symbol = "FX:USDJPY"
	host.mu.Unlock()
	if err := a.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !old.Closed() {
		t.Fatalf("old overlay still open")
	}
	if _, ok := coord.Registry().Lookup(old.Key()); ok {
		t.Fatalf("old key still registered")
	}
	fresh := overlayFor(t, coord, "FX:USDJPY")
	if fresh.ID() == old.ID() {
		t.Fatalf("overlay not recreated")
	}
	if got, want := len(host.stopped), 1; got != want {
		t.Fatalf("stopped streams = %d, want %d", got, want)
	}
}

func TestAttacherDetachesVanishedCharts(t *testing.T) {
	host := newFakeHost()
	host.addTab("c1", "FX:EURUSD", "60", 1)
	host.addTab("c2", "FX:GBPUSD", "60", 1)
	a, coord := newTestAttacher(host, nil)
	ctx := context.Background()

	if err := a.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	gone := overlayFor(t, coord, "FX:GBPUSD")

	host.removeTab("c2")
	if err := a.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !gone.Closed() {
		t.Fatalf("overlay for closed tab still open")
	}
	if got, want := coord.Registry().Len(), 1; got != want {
		t.Fatalf("registry len = %d, want %d", got, want)
	}
	if _, ok := attachedByChart(a)["c2"]; ok {
		t.Fatalf("c2 still attached")
	}

	a.Close()
	if got := coord.Registry().Len(); got != 0 {
		t.Fatalf("registry len after Close = %d, want 0", got)
	}
	if got := len(a.Attached()); got != 0 {
		t.Fatalf("attached after Close = %d, want 0", got)
	}
}

func TestAttacherOptionsPerChart(t *testing.T) {
	host := newFakeHost()
	host.addTab("c1", "FX:EURUSD", "60", 1)
	host.addTab("c2", "FX:GBPUSD", "60", 1)
	a, coord := newTestAttacher(host, func(key crosshair.ChartKey) crosshair.Options {
		return crosshair.Options{ScrollSync: key.Symbol == "FX:EURUSD", Scope: crosshair.ScopeSymbol}
	})
	if err := a.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !overlayFor(t, coord, "FX:EURUSD").Options().ScrollSync {
		t.Fatalf("EURUSD scroll sync disabled")
	}
	if overlayFor(t, coord, "FX:GBPUSD").Options().ScrollSync {
		t.Fatalf("GBPUSD scroll sync enabled")
	}
}

func TestDispatcherRoutesHookEvents(t *testing.T) {
	host := newFakeHost()
	host.addTab("c1", "FX:EURUSD", "60", 1)
	peer := host.addTab("c2", "FX:GBPUSD", "60", 1)
	peer.prices = cdpcontrol.PriceRange{From: 50, To: 150}
	peer.bars = []int64{0, 3600, 7200}
	a, coord := newTestAttacher(host, func(crosshair.ChartKey) crosshair.Options {
		return crosshair.Options{ScrollSync: true}
	})
	if err := a.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	src := overlayFor(t, coord, "FX:EURUSD")
	dst := overlayFor(t, coord, "FX:GBPUSD")

	host.emit("c1", cdpcontrol.HookEvent{Type: cdpcontrol.HookMouseMove, Time: 3600.4, Price: 25, Modifier: true})
	if got, want := src.State(), crosshair.StateAnchored; got != want {
		t.Fatalf("source state = %v, want %v", got, want)
	}
	if got, want := dst.State(), crosshair.StateAnchored; got != want {
		t.Fatalf("peer state = %v, want %v", got, want)
	}
	last := dst.Snapshot().Last
	if last.Price != 75 || last.Time.Unix() != 3600 {
		t.Fatalf("peer sample = %+v, want price 75 at 3600", last)
	}

	host.emit("c1", cdpcontrol.HookEvent{Type: cdpcontrol.HookMouseDown})
	if got, want := src.State(), crosshair.StateIdle; got != want {
		t.Fatalf("source state after click = %v, want %v", got, want)
	}
	if got, want := dst.State(), crosshair.StateIdle; got != want {
		t.Fatalf("peer state after click = %v, want %v", got, want)
	}

	host.emit("c1", cdpcontrol.HookEvent{Type: cdpcontrol.HookScroll, FirstVisible: 3600})
	if got, want := peer.visible.From, float64(3600); got != want {
		t.Fatalf("peer first visible = %v, want %v", got, want)
	}
	if got, want := coord.PendingScrolls(), int64(1); got != want {
		t.Fatalf("pending scrolls = %d, want %d", got, want)
	}
	// The peer's own visible-range callback is suppressed.
	host.emit("c2", cdpcontrol.HookEvent{Type: cdpcontrol.HookScroll, FirstVisible: 3600})
	if got := coord.PendingScrolls(); got != 0 {
		t.Fatalf("pending scrolls after echo = %d, want 0", got)
	}

	// Unknown event types and closed overlays are ignored.
	host.emit("c1", cdpcontrol.HookEvent{Type: "resize"})
	src.Close()
	host.emit("c1", cdpcontrol.HookEvent{Type: cdpcontrol.HookMouseMove, Time: 7200, Price: 10, Modifier: true})
	if got, want := src.State(), crosshair.StateIdle; got != want {
		t.Fatalf("closed overlay state = %v, want %v", got, want)
	}
}
