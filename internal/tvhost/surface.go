package tvhost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
)

// ErrUnknownObject is returned when moving an object this surface never drew.
var ErrUnknownObject = errors.New("tvhost: unknown object")

var _ crosshair.Chart = (*Surface)(nil)

// Surface is one TradingView chart tab seen as a crosshair.Chart. Drawn
// objects are tracked by name; TradingView entity ids stay internal.
type Surface struct {
	host    Host
	chartID string

	mu     sync.Mutex
	shapes map[string]string
	starts map[string]cdpcontrol.ShapePoint
	texts  map[string]bool
	bars   []time.Time
	prec   *crosshair.Precision
}

func NewSurface(host Host, chartID string) *Surface {
	return &Surface{
		host:    host,
		chartID: chartID,
		shapes:  make(map[string]string),
		starts:  make(map[string]cdpcontrol.ShapePoint),
		texts:   make(map[string]bool),
	}
}

func (s *Surface) ChartID() string { return s.chartID }

func (s *Surface) Key(ctx context.Context) (crosshair.ChartKey, error) {
	id, err := s.host.ChartIdentity(ctx, s.chartID)
	if err != nil {
		return crosshair.ChartKey{}, err
	}
	return crosshair.ChartKey{Symbol: id.Symbol, Timeframe: id.Resolution, ChartType: id.ChartType}, nil
}

func lineOptions(shape, color string) cdpcontrol.ShapeOptions {
	return cdpcontrol.ShapeOptions{
		Shape:            shape,
		Lock:             true,
		DisableSelection: true,
		DisableSave:      true,
		DisableUndo:      true,
		Overrides: map[string]any{
			"linecolor": color,
			"linewidth": 1,
			"linestyle": 2,
		},
	}
}

func (s *Surface) DrawHorizontalLine(ctx context.Context, name string, price float64, color string) error {
	return s.drawShape(ctx, name, cdpcontrol.ShapePoint{Price: price}, lineOptions("horizontal_line", color))
}

func (s *Surface) MoveHorizontalLine(ctx context.Context, name string, price float64) error {
	return s.moveShape(ctx, name, []cdpcontrol.ShapePoint{{Price: price}})
}

func (s *Surface) DrawVerticalLine(ctx context.Context, name string, t time.Time, color string) error {
	return s.drawShape(ctx, name, cdpcontrol.ShapePoint{Time: t.Unix()}, lineOptions("vertical_line", color))
}

func (s *Surface) MoveVerticalLine(ctx context.Context, name string, t time.Time) error {
	return s.moveShape(ctx, name, []cdpcontrol.ShapePoint{{Time: t.Unix()}})
}

func (s *Surface) DrawTrendLine(ctx context.Context, name string, from, to crosshair.Point, color string) error {
	if err := s.RemoveObject(ctx, name); err != nil {
		return err
	}
	start, end := shapePoint(from), shapePoint(to)
	opts := lineOptions("trend_line", color)
	opts.Overrides["linestyle"] = 0
	id, err := s.host.CreateMultipointShape(ctx, s.chartID, []cdpcontrol.ShapePoint{start, end}, opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.shapes[name] = id
	s.starts[name] = start
	s.mu.Unlock()
	return nil
}

func (s *Surface) MoveTrendLineEnd(ctx context.Context, name string, to crosshair.Point) error {
	s.mu.Lock()
	start, ok := s.starts[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return s.moveShape(ctx, name, []cdpcontrol.ShapePoint{start, shapePoint(to)})
}

// RemoveObject removes a drawn line or static text. Unknown names are ignored.
func (s *Surface) RemoveObject(ctx context.Context, name string) error {
	s.mu.Lock()
	id, isShape := s.shapes[name]
	isText := s.texts[name]
	s.mu.Unlock()

	if isShape {
		if err := s.host.RemoveEntity(ctx, s.chartID, id); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.shapes, name)
		delete(s.starts, name)
		s.mu.Unlock()
	}
	if isText {
		if err := s.host.RemoveText(ctx, s.chartID, name); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.texts, name)
		s.mu.Unlock()
	}
	return nil
}

func (s *Surface) ShowReadout(ctx context.Context, style crosshair.ReadoutStyle, values crosshair.ReadoutValues) error {
	return s.host.ShowPanel(ctx, s.chartID, cdpcontrol.Panel{
		Horizontal: string(style.Horizontal),
		Vertical:   string(style.Vertical),
		Opacity:    style.Opacity,
		Margin:     style.Margin,
		Rows: []cdpcontrol.PanelRow{
			{Label: "Time", Value: values.Time},
			{Label: "Pips", Value: values.Pips},
			{Label: "Periods", Value: values.Periods},
			{Label: "Price", Value: values.Price},
		},
	})
}

func (s *Surface) HideReadout(ctx context.Context) error {
	return s.host.HidePanel(ctx, s.chartID)
}

func (s *Surface) DrawStaticText(ctx context.Context, name, text string) error {
	if err := s.host.ShowText(ctx, s.chartID, name, text); err != nil {
		return err
	}
	s.mu.Lock()
	s.texts[name] = true
	s.mu.Unlock()
	return nil
}

func (s *Surface) ForegroundColor(ctx context.Context) (string, error) {
	return s.host.ForegroundColor(ctx, s.chartID)
}

func (s *Surface) VisiblePriceRange(ctx context.Context) (crosshair.PriceRange, error) {
	r, err := s.host.VisiblePriceRange(ctx, s.chartID)
	if err != nil {
		return crosshair.PriceRange{}, err
	}
	return crosshair.PriceRange{Bottom: r.From, Top: r.To}, nil
}

// Precision is read once per surface; symbol changes produce a new surface.
func (s *Surface) Precision(ctx context.Context) (crosshair.Precision, error) {
	s.mu.Lock()
	cached := s.prec
	s.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	info, err := s.host.GetSymbolInfo(ctx, s.chartID)
	if err != nil {
		return crosshair.Precision{}, err
	}
	p, err := PrecisionFromSymbol(info.MinMov, info.PriceScale)
	if err != nil {
		return crosshair.Precision{}, err
	}
	s.mu.Lock()
	s.prec = &p
	s.mu.Unlock()
	return p, nil
}

// PrecisionFromSymbol derives tick size, pip size and digits from
// TradingView's minmov/pricescale. Five and three digit quotes (fractional
// pips) have a pip of ten ticks.
func PrecisionFromSymbol(minMov, priceScale int) (crosshair.Precision, error) {
	if priceScale <= 0 {
		return crosshair.Precision{}, fmt.Errorf("tvhost: invalid pricescale %d", priceScale)
	}
	if minMov <= 0 {
		minMov = 1
	}
	tick := float64(minMov) / float64(priceScale)
	digits := int(math.Round(math.Log10(float64(priceScale))))
	pip := tick
	if digits == 3 || digits == 5 {
		pip = tick * 10
	}
	return crosshair.Precision{TickSize: tick, PipSize: pip, Digits: digits}, nil
}

// BarIndexByTime returns the index of the bar containing t: the last bar
// opening at or before t. Times before the first loaded bar map to 0.
func (s *Surface) BarIndexByTime(ctx context.Context, t time.Time) (int, error) {
	bars, err := s.barsCovering(ctx, t)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	i := sort.Search(len(bars), func(i int) bool { return bars[i].After(t) })
	return max(i-1, 0), nil
}

func (s *Surface) BarTimeByIndex(ctx context.Context, index int) (time.Time, error) {
	bars, err := s.loadedBars(ctx, false)
	if err != nil {
		return time.Time{}, err
	}
	if index < 0 || index >= len(bars) {
		return time.Time{}, fmt.Errorf("tvhost: bar index %d out of range [0,%d)", index, len(bars))
	}
	return bars[index], nil
}

func (s *Surface) FirstVisibleBarTime(ctx context.Context) (time.Time, error) {
	r, err := s.host.GetVisibleRange(ctx, s.chartID)
	if err != nil {
		return time.Time{}, err
	}
	return unixTime(r.From), nil
}

func (s *Surface) EarliestBarTime(ctx context.Context) (time.Time, error) {
	bars, err := s.loadedBars(ctx, true)
	if err != nil {
		return time.Time{}, err
	}
	if len(bars) == 0 {
		return time.Time{}, nil
	}
	return bars[0], nil
}

// ScrollToTime keeps the current zoom and makes t the left edge.
func (s *Surface) ScrollToTime(ctx context.Context, t time.Time) error {
	r, err := s.host.GetVisibleRange(ctx, s.chartID)
	if err != nil {
		return err
	}
	width := max(r.To-r.From, 1)
	from := float64(t.Unix())
	_, err = s.host.SetVisibleRange(ctx, s.chartID, from, from+width)
	return err
}

func (s *Surface) LoadMoreHistory(ctx context.Context) (int, error) {
	n, err := s.host.RequestMoreHistory(ctx, s.chartID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.bars = nil
	s.mu.Unlock()
	return n, nil
}

func (s *Surface) drawShape(ctx context.Context, name string, point cdpcontrol.ShapePoint, opts cdpcontrol.ShapeOptions) error {
	if err := s.RemoveObject(ctx, name); err != nil {
		return err
	}
	id, err := s.host.CreateShape(ctx, s.chartID, point, opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.shapes[name] = id
	s.mu.Unlock()
	return nil
}

func (s *Surface) moveShape(ctx context.Context, name string, points []cdpcontrol.ShapePoint) error {
	s.mu.Lock()
	id, ok := s.shapes[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return s.host.SetShapePoints(ctx, s.chartID, id, points)
}

// barsCovering returns the cached bars, refreshing once when t lies past
// the newest cached bar (a new bar has opened since the last load).
func (s *Surface) barsCovering(ctx context.Context, t time.Time) ([]time.Time, error) {
	bars, err := s.loadedBars(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 && !t.After(bars[len(bars)-1]) {
		return bars, nil
	}
	return s.loadedBars(ctx, true)
}

func (s *Surface) loadedBars(ctx context.Context, refresh bool) ([]time.Time, error) {
	s.mu.Lock()
	bars := s.bars
	s.mu.Unlock()
	if bars != nil && !refresh {
		return bars, nil
	}

	raw, err := s.host.BarTimes(ctx, s.chartID)
	if err != nil {
		return nil, err
	}
	bars = make([]time.Time, len(raw))
	for i, v := range raw {
		bars[i] = time.Unix(v, 0).UTC()
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Before(bars[j]) })

	s.mu.Lock()
	s.bars = bars
	s.mu.Unlock()
	return bars, nil
}

func shapePoint(p crosshair.Point) cdpcontrol.ShapePoint {
	return cdpcontrol.ShapePoint{Time: p.Time.Unix(), Price: p.Price}
}

// unixTime truncates to whole seconds, the resolution TradingView reports.
func unixTime(sec float64) time.Time {
	return time.Unix(int64(math.Floor(sec)), 0).UTC()
}
