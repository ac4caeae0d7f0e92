package crosshair

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"
)

var barStart = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

func hour(n int) time.Time { return barStart.Add(time.Duration(n) * time.Hour) }

func TestNewOverlayRequiresCollaborators(t *testing.T) {
	if _, err := NewOverlay(context.Background(), nil, newFakeChart("EURUSD", "60"), Options{}); err == nil {
		t.Fatal("NewOverlay(nil coordinator) expected error")
	}
	if _, err := NewOverlay(context.Background(), newTestCoordinator(), nil, Options{}); err == nil {
		t.Fatal("NewOverlay(nil chart) expected error")
	}
}

func TestModifierHeldDrawsGuides(t *testing.T) {
	ctx := context.Background()
	chart := newFakeChart("EURUSD", "60")
	o := mustOverlay(t, newTestCoordinator(), chart, Options{})

	if err := o.HandleMouseMove(ctx, MouseEvent{Time: hour(1), Price: 1.1, Modifier: true}); err != nil {
		t.Fatalf("HandleMouseMove() error = %v", err)
	}
	if err := o.HandleMouseMove(ctx, MouseEvent{Time: hour(2), Price: 1.2, Modifier: true}); err != nil {
		t.Fatalf("HandleMouseMove() error = %v", err)
	}

	if got := o.State(); got != StateAnchored {
		t.Fatalf("State() = %v; want anchored", got)
	}
	if got := chart.ops(); !slices.Equal(got, []string{"draw-horizontal", "draw-vertical", "move-horizontal", "move-vertical"}) {
		t.Fatalf("ops = %v", got)
	}
	h, _ := chart.object("EURUSD_60_Candlesticks_Horizontal")
	if h[0] != 1.2 {
		t.Fatalf("horizontal line at %v; want 1.2", h[0])
	}
	c, _ := chart.lastCall("draw-horizontal")
	if c.args[1] != "#131722" {
		t.Fatalf("line color = %v; want foreground color", c.args[1])
	}
}

func TestMeasurementStartsOneSampleAfterRelease(t *testing.T) {
	ctx := context.Background()
	chart := newFakeChart("EURUSD", "60")
	chart.barTimes = hourlyBars(barStart, 10)
	o := mustOverlay(t, newTestCoordinator(), chart, Options{})

	moves := []MouseEvent{
		{Time: hour(0), Price: 1.10000, Modifier: true},
		{Time: hour(1), Price: 1.10500},
	}
	for _, m := range moves {
		if err := o.HandleMouseMove(ctx, m); err != nil {
			t.Fatalf("HandleMouseMove() error = %v", err)
		}
	}
	if got := o.State(); got != StateMeasuring {
		t.Fatalf("State() = %v; want measuring", got)
	}
	if chart.count("draw-line") != 0 || chart.count("show-readout") != 0 {
		t.Fatalf("release sample drew a measurement: %v", chart.ops())
	}

	if err := o.HandleMouseMove(ctx, MouseEvent{Time: hour(4), Price: 1.10623}); err != nil {
		t.Fatalf("HandleMouseMove() error = %v", err)
	}
	line, ok := chart.object("EURUSD_60_Candlesticks_Line")
	if !ok {
		t.Fatal("trend line not drawn")
	}
	if from := line[0].(Point); !from.Time.Equal(hour(1)) || from.Price != 1.105 {
		t.Fatalf("trend line starts at %+v; want release sample", from)
	}

	values, visible := o.Readout()
	if !visible {
		t.Fatal("readout not visible")
	}
	want := ReadoutValues{Time: "04/03/2024 12:00", Pips: "12.3", Periods: "3", Price: "1.10623"}
	if values != want {
		t.Fatalf("readout = %+v; want %+v", values, want)
	}

	if err := o.HandleMouseMove(ctx, MouseEvent{Time: hour(6), Price: 1.1}); err != nil {
		t.Fatalf("HandleMouseMove() error = %v", err)
	}
	if chart.count("draw-line") != 1 || chart.count("move-line") != 1 {
		t.Fatalf("expected one draw then one move of the trend line: %v", chart.ops())
	}
	if values, _ := o.Readout(); values.Periods != "5" || values.Pips != "50" {
		t.Fatalf("readout after second move = %+v", values)
	}
}

func TestMouseDownReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	for _, extra := range []int{0, 1, 7} {
		chart := newFakeChart("EURUSD", "60")
		chart.barTimes = hourlyBars(barStart, 20)
		o := mustOverlay(t, newTestCoordinator(), chart, Options{})

		_ = o.HandleMouseMove(ctx, MouseEvent{Time: hour(0), Price: 1.1, Modifier: true})
		_ = o.HandleMouseMove(ctx, MouseEvent{Time: hour(1), Price: 1.1})
		for i := range extra {
			_ = o.HandleMouseMove(ctx, MouseEvent{Time: hour(2 + i), Price: 1.1 + float64(i)/1000})
		}

		if err := o.HandleMouseDown(ctx, MouseEvent{}); err != nil {
			t.Fatalf("HandleMouseDown() error = %v", err)
		}
		if got := o.State(); got != StateIdle {
			t.Fatalf("extra=%d: State() = %v; want idle", extra, got)
		}
		if n := len(chart.objects); n != 0 {
			t.Fatalf("extra=%d: %d objects left on chart", extra, n)
		}
		if _, visible := o.Readout(); visible || chart.readout != nil {
			t.Fatalf("extra=%d: readout still visible", extra)
		}
	}
}

func TestMouseDownIgnoredWhenIdle(t *testing.T) {
	chart := newFakeChart("EURUSD", "60")
	o := mustOverlay(t, newTestCoordinator(), chart, Options{})
	if err := o.HandleMouseDown(context.Background(), MouseEvent{}); err != nil {
		t.Fatalf("HandleMouseDown() error = %v", err)
	}
	if ops := chart.ops(); len(ops) != 0 {
		t.Fatalf("idle mouse-down touched the chart: %v", ops)
	}
}

func TestResetReportsRemovalErrors(t *testing.T) {
	ctx := context.Background()
	chart := newFakeChart("EURUSD", "60")
	o := mustOverlay(t, newTestCoordinator(), chart, Options{})
	_ = o.ShowCrosshair(ctx, hour(0), 1.1, true)

	boom := errors.New("surface gone")
	chart.breakWith(boom)
	err := o.OnMouseDown(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("OnMouseDown() error = %v; want wrapped %v", err, boom)
	}
	if o.State() != StateIdle {
		t.Fatal("state not reset after failed removal")
	}
}

func TestSnapshotReportsAnchorWhileMeasuring(t *testing.T) {
	ctx := context.Background()
	chart := newFakeChart("EURUSD", "60")
	o := mustOverlay(t, newTestCoordinator(), chart, Options{Scope: ScopeSymbol, Readout: ReadoutStyle{Opacity: 0.5}})

	_ = o.ShowCrosshair(ctx, hour(0), 1.1, true)
	if s := o.Snapshot(); s.Anchor != nil || s.State != StateAnchored {
		t.Fatalf("anchored snapshot = %+v", s)
	}
	_ = o.ShowCrosshair(ctx, hour(1), 1.2, false)
	s := o.Snapshot()
	if s.Anchor == nil || math.Abs(s.Anchor.Price-1.2) > 0 {
		t.Fatalf("measuring snapshot anchor = %+v", s.Anchor)
	}
	if s.Options.Readout.Horizontal != AlignRight || s.Options.Readout.Opacity != 0.5 {
		t.Fatalf("options not normalized: %+v", s.Options.Readout)
	}
}
