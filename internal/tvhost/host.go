// Package tvhost runs crosshair overlays on TradingView chart tabs reached
// over the Chrome DevTools Protocol.
package tvhost

import (
	"context"

	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
)

// Host is the subset of cdpcontrol.Client the adapter drives.
type Host interface {
	ListCharts(ctx context.Context) ([]cdpcontrol.ChartInfo, error)
	ChartIdentity(ctx context.Context, chartID string) (cdpcontrol.ChartIdentity, error)
	GetSymbolInfo(ctx context.Context, chartID string) (cdpcontrol.SymbolInfo, error)

	CreateShape(ctx context.Context, chartID string, point cdpcontrol.ShapePoint, opts cdpcontrol.ShapeOptions) (string, error)
	CreateMultipointShape(ctx context.Context, chartID string, points []cdpcontrol.ShapePoint, opts cdpcontrol.ShapeOptions) (string, error)
	SetShapePoints(ctx context.Context, chartID, shapeID string, points []cdpcontrol.ShapePoint) error
	RemoveEntity(ctx context.Context, chartID, shapeID string) error

	ShowPanel(ctx context.Context, chartID string, panel cdpcontrol.Panel) error
	HidePanel(ctx context.Context, chartID string) error
	ShowText(ctx context.Context, chartID, name, text string) error
	RemoveText(ctx context.Context, chartID, name string) error

	ForegroundColor(ctx context.Context, chartID string) (string, error)
	VisiblePriceRange(ctx context.Context, chartID string) (cdpcontrol.PriceRange, error)
	GetVisibleRange(ctx context.Context, chartID string) (cdpcontrol.VisibleRange, error)
	SetVisibleRange(ctx context.Context, chartID string, from, to float64) (cdpcontrol.VisibleRange, error)
	BarTimes(ctx context.Context, chartID string) ([]int64, error)
	RequestMoreHistory(ctx context.Context, chartID string) (int, error)

	InstallHooks(ctx context.Context, chartID string) error
	WatchHooks(chartID string, queue int, fn func(cdpcontrol.HookEvent)) func()
}

var _ Host = (*cdpcontrol.Client)(nil)
