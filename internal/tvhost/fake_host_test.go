package tvhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
)

type fakeTab struct {
	identity cdpcontrol.ChartIdentity
	symbol   cdpcontrol.SymbolInfo
	prices   cdpcontrol.PriceRange
	visible  cdpcontrol.VisibleRange
	bars     []int64
	older    [][]int64
	shapes   map[string][]cdpcontrol.ShapePoint
	panel    *cdpcontrol.Panel
	texts    map[string]string
	hooks    int
}

type fakeHost struct {
	mu       sync.Mutex
	tabs     map[string]*fakeTab
	order    []string
	nextID   int
	calls    []string
	watchers map[string]func(cdpcontrol.HookEvent)
	stopped  []string
	fail     map[string]error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		tabs:     map[string]*fakeTab{},
		watchers: map[string]func(cdpcontrol.HookEvent){},
		fail:     map[string]error{},
	}
}

func (h *fakeHost) addTab(chartID, symbol, resolution string, chartType int) *fakeTab {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab := &fakeTab{
		identity: cdpcontrol.ChartIdentity{Symbol: symbol, Resolution: resolution, ChartTypeID: chartType, ChartType: cdpcontrol.ChartTypeName(chartType)},
		symbol:   cdpcontrol.SymbolInfo{Symbol: symbol, PriceScale: 100000, MinMov: 1},
		prices:   cdpcontrol.PriceRange{From: 0, To: 100},
		visible:  cdpcontrol.VisibleRange{From: 1_700_000_000, To: 1_700_036_000},
		shapes:   map[string][]cdpcontrol.ShapePoint{},
		texts:    map[string]string{},
	}
	h.tabs[chartID] = tab
	h.order = append(h.order, chartID)
	return tab
}

func (h *fakeHost) removeTab(chartID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, chartID)
}

func (h *fakeHost) tab(chartID, op string) (*fakeTab, error) {
	h.calls = append(h.calls, op)
	if err := h.fail[op]; err != nil {
		return nil, err
	}
	t, ok := h.tabs[chartID]
	if !ok {
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: "chart not found: " + chartID}
	}
	return t, nil
}

func (h *fakeHost) ListCharts(context.Context) ([]cdpcontrol.ChartInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []cdpcontrol.ChartInfo
	for _, id := range h.order {
		if _, ok := h.tabs[id]; ok {
			out = append(out, cdpcontrol.ChartInfo{ChartID: id})
		}
	}
	return out, nil
}

func (h *fakeHost) ChartIdentity(_ context.Context, chartID string) (cdpcontrol.ChartIdentity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "identity")
	if err != nil {
		return cdpcontrol.ChartIdentity{}, err
	}
	return t.identity, nil
}

func (h *fakeHost) GetSymbolInfo(_ context.Context, chartID string) (cdpcontrol.SymbolInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "symbol-info")
	if err != nil {
		return cdpcontrol.SymbolInfo{}, err
	}
	return t.symbol, nil
}

func (h *fakeHost) CreateShape(_ context.Context, chartID string, point cdpcontrol.ShapePoint, opts cdpcontrol.ShapeOptions) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "create-"+opts.Shape)
	if err != nil {
		return "", err
	}
	h.nextID++
	id := fmt.Sprintf("shape-%d", h.nextID)
	t.shapes[id] = []cdpcontrol.ShapePoint{point}
	return id, nil
}

func (h *fakeHost) CreateMultipointShape(_ context.Context, chartID string, points []cdpcontrol.ShapePoint, opts cdpcontrol.ShapeOptions) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "create-"+opts.Shape)
	if err != nil {
		return "", err
	}
	h.nextID++
	id := fmt.Sprintf("shape-%d", h.nextID)
	t.shapes[id] = append([]cdpcontrol.ShapePoint(nil), points...)
	return id, nil
}

func (h *fakeHost) SetShapePoints(_ context.Context, chartID, shapeID string, points []cdpcontrol.ShapePoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "set-points")
	if err != nil {
		return err
	}
	if _, ok := t.shapes[shapeID]; !ok {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: "shape not found: " + shapeID}
	}
	t.shapes[shapeID] = append([]cdpcontrol.ShapePoint(nil), points...)
	return nil
}

func (h *fakeHost) RemoveEntity(_ context.Context, chartID, shapeID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "remove-entity")
	if err != nil {
		return err
	}
	delete(t.shapes, shapeID)
	return nil
}

func (h *fakeHost) ShowPanel(_ context.Context, chartID string, panel cdpcontrol.Panel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "show-panel")
	if err != nil {
		return err
	}
	t.panel = &panel
	return nil
}

func (h *fakeHost) HidePanel(_ context.Context, chartID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "hide-panel")
	if err != nil {
		return err
	}
	t.panel = nil
	return nil
}

func (h *fakeHost) ShowText(_ context.Context, chartID, name, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "show-text")
	if err != nil {
		return err
	}
	t.texts[name] = text
	return nil
}

func (h *fakeHost) RemoveText(_ context.Context, chartID, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "remove-text")
	if err != nil {
		return err
	}
	delete(t.texts, name)
	return nil
}

func (h *fakeHost) ForegroundColor(_ context.Context, chartID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.tab(chartID, "color"); err != nil {
		return "", err
	}
	return "#131722", nil
}

func (h *fakeHost) VisiblePriceRange(_ context.Context, chartID string) (cdpcontrol.PriceRange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "price-range")
	if err != nil {
		return cdpcontrol.PriceRange{}, err
	}
	return t.prices, nil
}

func (h *fakeHost) GetVisibleRange(_ context.Context, chartID string) (cdpcontrol.VisibleRange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "get-range")
	if err != nil {
		return cdpcontrol.VisibleRange{}, err
	}
	return t.visible, nil
}

func (h *fakeHost) SetVisibleRange(_ context.Context, chartID string, from, to float64) (cdpcontrol.VisibleRange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "set-range")
	if err != nil {
		return cdpcontrol.VisibleRange{}, err
	}
	t.visible = cdpcontrol.VisibleRange{From: from, To: to}
	return t.visible, nil
}

func (h *fakeHost) BarTimes(_ context.Context, chartID string) ([]int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "bar-times")
	if err != nil {
		return nil, err
	}
	return append([]int64(nil), t.bars...), nil
}

func (h *fakeHost) RequestMoreHistory(_ context.Context, chartID string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "more-history")
	if err != nil {
		return 0, err
	}
	if len(t.older) == 0 {
		return 0, nil
	}
	batch := t.older[0]
	t.older = t.older[1:]
	t.bars = append(append([]int64(nil), batch...), t.bars...)
	return len(batch), nil
}

func (h *fakeHost) InstallHooks(_ context.Context, chartID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.tab(chartID, "install-hooks")
	if err != nil {
		return err
	}
	t.hooks++
	return nil
}

func (h *fakeHost) WatchHooks(chartID string, _ int, fn func(cdpcontrol.HookEvent)) func() {
	h.mu.Lock()
	h.watchers[chartID] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.watchers, chartID)
		h.stopped = append(h.stopped, chartID)
		h.mu.Unlock()
	}
}

// emit delivers evt synchronously, standing in for the delivery goroutine.
func (h *fakeHost) emit(chartID string, evt cdpcontrol.HookEvent) {
	h.mu.Lock()
	fn := h.watchers[chartID]
	h.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

func (h *fakeHost) count(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (h *fakeHost) shapesOn(chartID string) map[string][]cdpcontrol.ShapePoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string][]cdpcontrol.ShapePoint{}
	for k, v := range h.tabs[chartID].shapes {
		out[k] = v
	}
	return out
}
