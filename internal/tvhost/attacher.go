package tvhost

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
)

// OptionsFunc picks the overlay options for a chart.
type OptionsFunc func(crosshair.ChartKey) crosshair.Options

// AttacherConfig tunes the attacher. Zero values fall back to defaults.
type AttacherConfig struct {
	ResyncInterval time.Duration
	EventTimeout   time.Duration
	QueueSize      int
	Options        OptionsFunc
}

type attachedChart struct {
	chartID string
	overlay *crosshair.Overlay
	stop    func()
}

// AttachedInfo describes one chart tab that carries an overlay.
type AttachedInfo struct {
	ChartID    string             `json:"chart_id"`
	Key        crosshair.ChartKey `json:"key"`
	InstanceID string             `json:"instance_id"`
}

// Attacher keeps one overlay per open chart tab: it creates overlays for new
// tabs, recreates them when a tab switches symbol, timeframe or chart type,
// and closes them when the tab goes away.
type Attacher struct {
	host  Host
	coord *crosshair.Coordinator
	cfg   AttacherConfig

	mu     sync.Mutex
	charts map[string]*attachedChart
}

func NewAttacher(host Host, coord *crosshair.Coordinator, cfg AttacherConfig) *Attacher {
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = 5 * time.Second
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 10 * time.Second
	}
	if cfg.Options == nil {
		cfg.Options = func(crosshair.ChartKey) crosshair.Options {
			return crosshair.Options{Readout: crosshair.DefaultReadoutStyle()}
		}
	}
	return &Attacher{
		host:   host,
		coord:  coord,
		cfg:    cfg,
		charts: make(map[string]*attachedChart),
	}
}

// Run syncs immediately and then on every resync tick until ctx is done.
// All overlays are closed on return.
func (a *Attacher) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.Sync(ctx); err != nil {
		slog.Warn("tvhost initial sync failed", "error", err)
	}
	ticker := time.NewTicker(a.cfg.ResyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Sync(ctx); err != nil {
				slog.Warn("tvhost sync failed", "error", err)
			}
		}
	}
}

// Sync reconciles overlays with the chart tabs currently open. Failures on
// one tab are logged and do not stop the others.
func (a *Attacher) Sync(ctx context.Context) error {
	charts, err := a.host.ListCharts(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	open := make(map[string]bool, len(charts))
	for _, ch := range charts {
		open[ch.ChartID] = true
		if err := a.syncChartLocked(ctx, ch.ChartID); err != nil {
			slog.Warn("tvhost chart sync failed", "chart_id", ch.ChartID, "error", err)
		}
	}
	for id, ac := range a.charts {
		if open[id] {
			continue
		}
		slog.Info("tvhost chart closed", "chart_id", id, "key", ac.overlay.Key().String())
		a.detachLocked(ac)
		delete(a.charts, id)
	}
	return nil
}

func (a *Attacher) syncChartLocked(ctx context.Context, chartID string) error {
	if err := a.host.InstallHooks(ctx, chartID); err != nil {
		return err
	}

	ac := a.charts[chartID]
	if ac != nil {
		id, err := a.host.ChartIdentity(ctx, chartID)
		if err != nil {
			return err
		}
		key := crosshair.ChartKey{Symbol: id.Symbol, Timeframe: id.Resolution, ChartType: id.ChartType}
		if key == ac.overlay.Key() {
			return nil
		}
		slog.Info("tvhost chart identity changed", "chart_id", chartID, "from", ac.overlay.Key().String(), "to", key.String())
		if err := ac.overlay.OnMouseDown(ctx); err != nil {
			slog.Debug("tvhost cleanup before reattach failed", "chart_id", chartID, "error", err)
		}
		a.detachLocked(ac)
		delete(a.charts, chartID)
	}

	surface := NewSurface(a.host, chartID)
	key, err := surface.Key(ctx)
	if err != nil {
		return err
	}
	overlay, err := crosshair.NewOverlay(ctx, a.coord, surface, a.cfg.Options(key))
	if err != nil {
		return err
	}
	stop := a.host.WatchHooks(chartID, a.cfg.QueueSize, a.dispatcher(overlay))
	a.charts[chartID] = &attachedChart{chartID: chartID, overlay: overlay, stop: stop}
	slog.Info("tvhost chart attached",
		"chart_id", chartID,
		"key", key.String(),
		"instance_id", overlay.ID(),
		"scope", overlay.Options().Scope.String(),
		"scroll_sync", overlay.Options().ScrollSync,
	)
	return nil
}

func (a *Attacher) detachLocked(ac *attachedChart) {
	ac.stop()
	ac.overlay.Close()
	a.coord.Registry().Unregister(ac.overlay)
}

// Close detaches every overlay.
func (a *Attacher) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ac := range a.charts {
		a.detachLocked(ac)
		delete(a.charts, id)
	}
}

// Attached lists the charts currently carrying an overlay.
func (a *Attacher) Attached() []AttachedInfo {
	a.mu.Lock()
	out := make([]AttachedInfo, 0, len(a.charts))
	for id, ac := range a.charts {
		out = append(out, AttachedInfo{ChartID: id, Key: ac.overlay.Key(), InstanceID: ac.overlay.ID()})
	}
	a.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChartID < out[j].ChartID })
	return out
}

// dispatcher turns page hook events into overlay callbacks. It runs on the
// chart's delivery goroutine, one event at a time.
func (a *Attacher) dispatcher(o *crosshair.Overlay) func(cdpcontrol.HookEvent) {
	return func(evt cdpcontrol.HookEvent) {
		if o.Closed() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.EventTimeout)
		defer cancel()

		var err error
		switch evt.Type {
		case cdpcontrol.HookMouseMove:
			err = o.HandleMouseMove(ctx, crosshair.MouseEvent{Time: unixTime(evt.Time), Price: evt.Price, Modifier: evt.Modifier})
		case cdpcontrol.HookMouseDown:
			err = o.HandleMouseDown(ctx, crosshair.MouseEvent{Modifier: evt.Modifier})
		case cdpcontrol.HookScroll:
			err = o.HandleScroll(ctx, crosshair.ScrollEvent{FirstVisible: unixTime(evt.FirstVisible)})
		default:
			slog.Debug("tvhost unknown hook event", "type", evt.Type)
			return
		}
		if err != nil {
			slog.Warn("tvhost hook handling failed", "key", o.Key().String(), "type", evt.Type, "error", err)
		}
	}
}
