package crosshair

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State of an overlay's crosshair gesture.
type State int

const (
	// StateIdle: nothing drawn.
	StateIdle State = iota
	// StateAnchored: modifier held, guide lines follow the cursor.
	StateAnchored
	// StateMeasuring: modifier released, trend line and readout follow the cursor.
	StateMeasuring
)

func (s State) String() string {
	switch s {
	case StateAnchored:
		return "anchored"
	case StateMeasuring:
		return "measuring"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Options are fixed when the overlay is created.
type Options struct {
	Scope      Scope        `json:"scope"`
	Readout    ReadoutStyle `json:"readout"`
	ScrollSync bool         `json:"scroll_sync"`
}

type objectNames struct {
	horizontal string
	vertical   string
	line       string
	message    string
}

// Overlay is the per-chart crosshair instance.
type Overlay struct {
	coord *Coordinator
	chart Chart
	opts  Options
	id    string
	key   ChartKey
	names objectNames

	closed atomic.Bool
	// loadingHistory is set while scrollTo pages in older bars; range
	// callbacks caused by that paging are not scrolls.
	loadingHistory atomic.Bool

	mu             sync.Mutex
	state          State
	hasHorizontal  bool
	hasVertical    bool
	hasLine        bool
	hasMessage     bool
	readoutVisible bool
	readout        ReadoutValues
	anchor         Point
	last           Point
	lastMove       time.Time
	lastScroll     time.Time
}

// Snapshot is a point-in-time view of an overlay.
type Snapshot struct {
	ID             string        `json:"id"`
	Key            ChartKey      `json:"key"`
	State          State         `json:"state"`
	Options        Options       `json:"options"`
	Readout        ReadoutValues `json:"readout"`
	ReadoutVisible bool          `json:"readout_visible"`
	Anchor         *Point        `json:"anchor,omitempty"`
	Last           Point         `json:"last"`
	LastScroll     *time.Time    `json:"last_scroll,omitempty"`
	Closed         bool          `json:"closed"`
}

// NewOverlay reads the chart identity and registers the overlay with coord,
// replacing any overlay previously registered for the same key.
func NewOverlay(ctx context.Context, coord *Coordinator, chart Chart, opts Options) (*Overlay, error) {
	if coord == nil || chart == nil {
		return nil, errors.New("crosshair: coordinator and chart are required")
	}
	key, err := chart.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("crosshair: read chart key: %w", err)
	}
	opts.Readout = opts.Readout.Normalize()

	o := &Overlay{
		coord: coord,
		chart: chart,
		opts:  opts,
		id:    uuid.NewString(),
		key:   key,
		names: objectNames{
			horizontal: key.objectName("Horizontal"),
			vertical:   key.objectName("Vertical"),
			line:       key.objectName("Line"),
			message:    key.objectName("Message"),
		},
	}
	coord.registry.Register(key, o)
	return o, nil
}

func (o *Overlay) ID() string       { return o.id }
func (o *Overlay) Key() ChartKey    { return o.key }
func (o *Overlay) Options() Options { return o.opts }
func (o *Overlay) Chart() Chart     { return o.chart }

// Close marks the overlay dead. The registry stops resolving it immediately.
func (o *Overlay) Close() { o.closed.Store(true) }

func (o *Overlay) Closed() bool { return o.closed.Load() }

func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Readout returns the last readout values and whether the panel is shown.
func (o *Overlay) Readout() (ReadoutValues, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readout, o.readoutVisible
}

func (o *Overlay) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		ID:             o.id,
		Key:            o.key,
		State:          o.state,
		Options:        o.opts,
		Readout:        o.readout,
		ReadoutVisible: o.readoutVisible,
		Last:           o.last,
		Closed:         o.Closed(),
	}
	if o.state == StateMeasuring {
		a := o.anchor
		s.Anchor = &a
	}
	if !o.lastScroll.IsZero() {
		t := o.lastScroll
		s.LastScroll = &t
	}
	return s
}

// ShowCrosshair applies one cursor sample to this chart only.
func (o *Overlay) ShowCrosshair(ctx context.Context, t time.Time, price float64, modifier bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.showLocked(ctx, t, price, modifier)
}

func (o *Overlay) showLocked(ctx context.Context, t time.Time, price float64, modifier bool) error {
	p := Point{Time: t, Price: price}
	switch {
	case modifier:
		o.state = StateAnchored
		if err := o.placeGuidesLocked(ctx, p); err != nil {
			return err
		}
	case o.state == StateAnchored:
		// The sample that reports the release only fixes the start point;
		// drawing begins with the next one.
		o.state = StateMeasuring
		if !o.hasLine {
			o.anchor = p
		}
	case o.state == StateMeasuring:
		if err := o.measureLocked(ctx, p); err != nil {
			return err
		}
	}
	o.last = p
	return nil
}

func (o *Overlay) placeGuidesLocked(ctx context.Context, p Point) error {
	if o.hasHorizontal {
		if err := o.chart.MoveHorizontalLine(ctx, o.names.horizontal, p.Price); err != nil {
			return fmt.Errorf("move horizontal line: %w", err)
		}
	} else {
		color, err := o.chart.ForegroundColor(ctx)
		if err != nil {
			return fmt.Errorf("foreground color: %w", err)
		}
		if err := o.chart.DrawHorizontalLine(ctx, o.names.horizontal, p.Price, color); err != nil {
			return fmt.Errorf("draw horizontal line: %w", err)
		}
		o.hasHorizontal = true
	}

	if o.hasVertical {
		if err := o.chart.MoveVerticalLine(ctx, o.names.vertical, p.Time); err != nil {
			return fmt.Errorf("move vertical line: %w", err)
		}
	} else {
		color, err := o.chart.ForegroundColor(ctx)
		if err != nil {
			return fmt.Errorf("foreground color: %w", err)
		}
		if err := o.chart.DrawVerticalLine(ctx, o.names.vertical, p.Time, color); err != nil {
			return fmt.Errorf("draw vertical line: %w", err)
		}
		o.hasVertical = true
	}
	return nil
}

func (o *Overlay) measureLocked(ctx context.Context, p Point) error {
	if o.hasLine {
		if err := o.chart.MoveTrendLineEnd(ctx, o.names.line, p); err != nil {
			return fmt.Errorf("move trend line: %w", err)
		}
	} else {
		color, err := o.chart.ForegroundColor(ctx)
		if err != nil {
			return fmt.Errorf("foreground color: %w", err)
		}
		if err := o.chart.DrawTrendLine(ctx, o.names.line, o.anchor, p, color); err != nil {
			return fmt.Errorf("draw trend line: %w", err)
		}
		o.hasLine = true
	}

	prec, err := o.chart.Precision(ctx)
	if err != nil {
		return fmt.Errorf("precision: %w", err)
	}
	from, err := o.chart.BarIndexByTime(ctx, o.anchor.Time)
	if err != nil {
		return fmt.Errorf("bar index: %w", err)
	}
	to, err := o.chart.BarIndexByTime(ctx, p.Time)
	if err != nil {
		return fmt.Errorf("bar index: %w", err)
	}
	periods := to - from
	if periods < 0 {
		periods = -periods
	}

	values := formatReadout(p.Time, o.coord.location, ToPips(p.Price-o.anchor.Price, prec), periods, p.Price, prec.Digits)
	if err := o.chart.ShowReadout(ctx, o.opts.Readout, values); err != nil {
		return fmt.Errorf("show readout: %w", err)
	}
	o.readout = values
	o.readoutVisible = true
	return nil
}

// OnMouseDown clears every drawn object and returns the overlay to idle,
// whatever state it was in.
func (o *Overlay) OnMouseDown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resetLocked(ctx)
}

func (o *Overlay) resetLocked(ctx context.Context) error {
	o.state = StateIdle
	o.anchor = Point{}

	var errs []error
	remove := func(present *bool, name string) {
		if !*present {
			return
		}
		if err := o.chart.RemoveObject(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			return
		}
		*present = false
	}
	remove(&o.hasHorizontal, o.names.horizontal)
	remove(&o.hasVertical, o.names.vertical)
	remove(&o.hasLine, o.names.line)

	if err := o.chart.HideReadout(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hide readout: %w", err))
	}
	o.readoutVisible = false
	return errors.Join(errs...)
}
