package controller

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"github.com/dgnsrekt/tv_crosshair/internal/tvhost"
)

// ChartLister reports which chart tabs carry an overlay.
type ChartLister interface {
	Attached() []tvhost.AttachedInfo
}

// TabLister is the CDP side the health check probes.
type TabLister interface {
	ListCharts(ctx context.Context) ([]cdpcontrol.ChartInfo, error)
	HookStats() []cdpcontrol.HookStats
}

// Service exposes the crosshair coordinator to the HTTP API: it validates
// requests, resolves chart keys to live overlays and injects gestures.
type Service struct {
	coord  *crosshair.Coordinator
	charts ChartLister
	tabs   TabLister
}

// NewService wires the coordinator with the optional chart and tab listers.
// Either lister may be nil when the process runs without a browser.
func NewService(coord *crosshair.Coordinator, charts ChartLister, tabs TabLister) *Service {
	return &Service{coord: coord, charts: charts, tabs: tabs}
}

// Health summarises the coordinator and, when a browser is attached, the
// CDP connection.
type Health struct {
	Status         string `json:"status"`
	Overlays       int    `json:"overlays"`
	PendingScrolls int64  `json:"pending_scrolls"`
	ChartTabs      int    `json:"chart_tabs"`
	CDPError       string `json:"cdp_error,omitempty"`
	// HooksDropped sums mouse moves discarded because a chart's hook queue
	// was full.
	HooksDropped int64                  `json:"hooks_dropped"`
	Hooks        []cdpcontrol.HookStats `json:"hooks,omitempty"`
}

// OverlayInfo is one registry entry, joined with its chart tab when known.
type OverlayInfo struct {
	Key           string             `json:"key"`
	Identity      crosshair.ChartKey `json:"identity"`
	InstanceID    string             `json:"instance_id,omitempty"`
	Alive         bool               `json:"alive"`
	PendingScroll *time.Time         `json:"pending_scroll,omitempty"`
	ChartID       string             `json:"chart_id,omitempty"`
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) Health(ctx context.Context) Health {
	h := Health{Status: "ok", PendingScrolls: s.coord.PendingScrolls()}
	for _, e := range s.coord.Registry().Snapshot() {
		if e.Alive {
			h.Overlays++
		}
	}
	if s.tabs != nil {
		tabs, err := s.tabs.ListCharts(ctx)
		if err != nil {
			h.Status = "degraded"
			h.CDPError = err.Error()
		}
		h.ChartTabs = len(tabs)
		h.Hooks = s.tabs.HookStats()
		slices.SortFunc(h.Hooks, func(a, b cdpcontrol.HookStats) int { return strings.Compare(a.ChartID, b.ChartID) })
		for _, st := range h.Hooks {
			h.HooksDropped += st.Dropped
		}
	}
	return h
}

func (s *Service) ListOverlays() []OverlayInfo {
	chartIDs := make(map[crosshair.ChartKey]string)
	if s.charts != nil {
		for _, a := range s.charts.Attached() {
			chartIDs[a.Key] = a.ChartID
		}
	}
	entries := s.coord.Registry().Snapshot()
	out := make([]OverlayInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, OverlayInfo{
			Key:           e.Key.String(),
			Identity:      e.Key,
			InstanceID:    e.InstanceID,
			Alive:         e.Alive,
			PendingScroll: e.PendingScroll,
			ChartID:       chartIDs[e.Key],
		})
	}
	return out
}

func (s *Service) GetOverlay(key string) (crosshair.Snapshot, error) {
	o, err := s.overlay(key)
	if err != nil {
		return crosshair.Snapshot{}, err
	}
	return o.Snapshot(), nil
}

// MouseMove injects one cursor sample as if the host had reported it. ts is
// unix seconds.
func (s *Service) MouseMove(ctx context.Context, key string, ts int64, price float64, modifier bool) (crosshair.Snapshot, error) {
	if ts <= 0 {
		return crosshair.Snapshot{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "time must be a positive unix timestamp"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return crosshair.Snapshot{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "price must be finite"}
	}
	o, err := s.overlay(key)
	if err != nil {
		return crosshair.Snapshot{}, err
	}
	evt := crosshair.MouseEvent{Time: time.Unix(ts, 0).UTC(), Price: price, Modifier: modifier}
	if err := o.HandleMouseMove(ctx, evt); err != nil {
		return crosshair.Snapshot{}, hostErr("mouse move", err)
	}
	return o.Snapshot(), nil
}

func (s *Service) MouseDown(ctx context.Context, key string) (crosshair.Snapshot, error) {
	o, err := s.overlay(key)
	if err != nil {
		return crosshair.Snapshot{}, err
	}
	if err := o.HandleMouseDown(ctx, crosshair.MouseEvent{}); err != nil {
		return crosshair.Snapshot{}, hostErr("mouse down", err)
	}
	return o.Snapshot(), nil
}

// Scroll injects a visible-range change. firstVisible is unix seconds.
func (s *Service) Scroll(ctx context.Context, key string, firstVisible int64) (crosshair.Snapshot, error) {
	if firstVisible <= 0 {
		return crosshair.Snapshot{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "first_visible must be a positive unix timestamp"}
	}
	o, err := s.overlay(key)
	if err != nil {
		return crosshair.Snapshot{}, err
	}
	if !o.Options().ScrollSync {
		return crosshair.Snapshot{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "scroll sync is disabled for " + key}
	}
	evt := crosshair.ScrollEvent{FirstVisible: time.Unix(firstVisible, 0).UTC()}
	if err := o.HandleScroll(ctx, evt); err != nil {
		return crosshair.Snapshot{}, hostErr("scroll", err)
	}
	return o.Snapshot(), nil
}

// Evict drops the registry entry for key. The overlay keeps drawing on its
// own chart but takes no further part in sync until its tab is re-attached.
func (s *Service) Evict(key string) error {
	k, err := s.parseKey(key)
	if err != nil {
		return err
	}
	if !s.coord.Registry().Evict(k) {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: "no overlay registered for " + key}
	}
	return nil
}

func (s *Service) parseKey(key string) (crosshair.ChartKey, error) {
	if err := s.requireNonEmpty(key, "key"); err != nil {
		return crosshair.ChartKey{}, err
	}
	k, err := crosshair.ParseChartKey(strings.TrimSpace(key))
	if err != nil {
		return crosshair.ChartKey{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: err.Error(), Cause: err}
	}
	return k, nil
}

func (s *Service) overlay(key string) (*crosshair.Overlay, error) {
	k, err := s.parseKey(key)
	if err != nil {
		return nil, err
	}
	o, ok := s.coord.Registry().Lookup(k)
	if !ok {
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: "no live overlay for " + key}
	}
	return o, nil
}

// hostErr keeps coded errors from the CDP layer and marks anything else as
// an evaluation failure on the chart.
func hostErr(op string, err error) error {
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		return err
	}
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: op + ": " + err.Error(), Cause: err}
}
