package crosshair

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var errChartGone = errors.New("chart closed")

type call struct {
	op   string
	name string
	args []any
}

// fakeChart records every host call and serves fixed metadata.
type fakeChart struct {
	mu sync.Mutex

	key       ChartKey
	rng       PriceRange
	prec      Precision
	barTimes  []time.Time
	older     [][]time.Time
	first     time.Time
	fail      error
	panicWith any
	// onLoad runs inside LoadMoreHistory, where the host pans the chart.
	onLoad func()

	calls   []call
	objects map[string][]any
	readout *ReadoutValues
	texts   map[string]string
}

func newFakeChart(symbol, tf string) *fakeChart {
	return &fakeChart{
		key:     ChartKey{Symbol: symbol, Timeframe: tf, ChartType: "Candlesticks"},
		rng:     PriceRange{Bottom: 0, Top: 100},
		prec:    Precision{TickSize: 0.00001, PipSize: 0.0001, Digits: 5},
		objects: map[string][]any{},
		texts:   map[string]string{},
	}
}

func (f *fakeChart) record(op, name string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, call{op: op, name: name, args: args})
	return nil
}

func (f *fakeChart) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

func (f *fakeChart) count(op string) int {
	n := 0
	for _, o := range f.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func (f *fakeChart) object(name string) ([]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[name]
	return v, ok
}

func (f *fakeChart) lastCall(op string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].op == op {
			return f.calls[i], true
		}
	}
	return call{}, false
}

func (f *fakeChart) Key(context.Context) (ChartKey, error) { return f.key, nil }

func (f *fakeChart) DrawHorizontalLine(_ context.Context, name string, price float64, color string) error {
	if err := f.record("draw-horizontal", name, price, color); err != nil {
		return err
	}
	f.setObject(name, price)
	return nil
}

func (f *fakeChart) MoveHorizontalLine(_ context.Context, name string, price float64) error {
	if err := f.record("move-horizontal", name, price); err != nil {
		return err
	}
	f.setObject(name, price)
	return nil
}

func (f *fakeChart) DrawVerticalLine(_ context.Context, name string, t time.Time, color string) error {
	if err := f.record("draw-vertical", name, t, color); err != nil {
		return err
	}
	f.setObject(name, t)
	return nil
}

func (f *fakeChart) MoveVerticalLine(_ context.Context, name string, t time.Time) error {
	if err := f.record("move-vertical", name, t); err != nil {
		return err
	}
	f.setObject(name, t)
	return nil
}

func (f *fakeChart) DrawTrendLine(_ context.Context, name string, from, to Point, color string) error {
	if err := f.record("draw-line", name, from, to, color); err != nil {
		return err
	}
	f.setObject(name, from, to)
	return nil
}

func (f *fakeChart) MoveTrendLineEnd(_ context.Context, name string, to Point) error {
	if err := f.record("move-line", name, to); err != nil {
		return err
	}
	f.mu.Lock()
	if v, ok := f.objects[name]; ok && len(v) == 2 {
		f.objects[name] = []any{v[0], to}
	}
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) RemoveObject(_ context.Context, name string) error {
	if err := f.record("remove", name); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.objects, name)
	delete(f.texts, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) ShowReadout(_ context.Context, style ReadoutStyle, values ReadoutValues) error {
	if err := f.record("show-readout", "", style, values); err != nil {
		return err
	}
	f.mu.Lock()
	f.readout = &values
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) HideReadout(context.Context) error {
	if err := f.record("hide-readout", ""); err != nil {
		return err
	}
	f.mu.Lock()
	f.readout = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) DrawStaticText(_ context.Context, name, text string) error {
	if err := f.record("draw-text", name, text); err != nil {
		return err
	}
	f.mu.Lock()
	f.texts[name] = text
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) ForegroundColor(context.Context) (string, error) {
	return "#131722", f.failure()
}

func (f *fakeChart) VisiblePriceRange(context.Context) (PriceRange, error) {
	if err := f.failure(); err != nil {
		return PriceRange{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng, nil
}

func (f *fakeChart) Precision(context.Context) (Precision, error) { return f.prec, f.failure() }

func (f *fakeChart) BarIndexByTime(_ context.Context, t time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := sort.Search(len(f.barTimes), func(i int) bool { return f.barTimes[i].After(t) })
	return i - 1, nil
}

func (f *fakeChart) BarTimeByIndex(_ context.Context, index int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.barTimes) {
		return time.Time{}, errors.New("index out of range")
	}
	return f.barTimes[index], nil
}

func (f *fakeChart) FirstVisibleBarTime(context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.first, nil
}

func (f *fakeChart) EarliestBarTime(context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.barTimes) == 0 {
		return time.Time{}, nil
	}
	return f.barTimes[0], nil
}

func (f *fakeChart) ScrollToTime(_ context.Context, t time.Time) error {
	if err := f.record("scroll", "", t); err != nil {
		return err
	}
	f.mu.Lock()
	f.first = t
	f.mu.Unlock()
	return nil
}

func (f *fakeChart) LoadMoreHistory(context.Context) (int, error) {
	if err := f.record("load-history", ""); err != nil {
		return 0, err
	}
	if f.onLoad != nil {
		f.onLoad()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.older) == 0 {
		return 0, nil
	}
	batch := f.older[0]
	f.older = f.older[1:]
	f.barTimes = append(append([]time.Time{}, batch...), f.barTimes...)
	return len(batch), nil
}

func (f *fakeChart) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.fail
}

func (f *fakeChart) setObject(name string, v ...any) {
	f.mu.Lock()
	f.objects[name] = v
	f.mu.Unlock()
}

func (f *fakeChart) breakWith(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func hourlyBars(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// steppingClock advances by step on every call so throttling never drops
// samples unless a test wants it to.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}
