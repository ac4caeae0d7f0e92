package crosshair

import (
	"context"
	"time"
)

// Chart is the host charting surface an Overlay draws on. Implementations
// return an error when the underlying chart is gone; fan-out treats any
// error from a peer as a dead peer.
type Chart interface {
	Key(ctx context.Context) (ChartKey, error)

	DrawHorizontalLine(ctx context.Context, name string, price float64, color string) error
	MoveHorizontalLine(ctx context.Context, name string, price float64) error
	DrawVerticalLine(ctx context.Context, name string, t time.Time, color string) error
	MoveVerticalLine(ctx context.Context, name string, t time.Time) error
	DrawTrendLine(ctx context.Context, name string, from, to Point, color string) error
	MoveTrendLineEnd(ctx context.Context, name string, to Point) error
	RemoveObject(ctx context.Context, name string) error

	ShowReadout(ctx context.Context, style ReadoutStyle, values ReadoutValues) error
	HideReadout(ctx context.Context) error
	DrawStaticText(ctx context.Context, name, text string) error

	ForegroundColor(ctx context.Context) (string, error)
	VisiblePriceRange(ctx context.Context) (PriceRange, error)
	Precision(ctx context.Context) (Precision, error)
	BarIndexByTime(ctx context.Context, t time.Time) (int, error)
	BarTimeByIndex(ctx context.Context, index int) (time.Time, error)

	FirstVisibleBarTime(ctx context.Context) (time.Time, error)
	EarliestBarTime(ctx context.Context) (time.Time, error)
	ScrollToTime(ctx context.Context, t time.Time) error
	LoadMoreHistory(ctx context.Context) (int, error)
}

// Point is a chart coordinate.
type Point struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// MouseEvent is delivered by the host on mouse-move and mouse-down.
type MouseEvent struct {
	Time     time.Time `json:"time"`
	Price    float64   `json:"price"`
	Modifier bool      `json:"modifier"`
}

// ScrollEvent is delivered when the visible time window changes.
type ScrollEvent struct {
	FirstVisible time.Time `json:"first_visible"`
}
