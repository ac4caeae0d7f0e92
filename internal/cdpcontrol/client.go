package cdpcontrol

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
)

// bindingName is the page global the event hooks report through.
const bindingName = "__tvCrosshairEmit"

type Client struct {
	cdpURL      string
	tabFilter   string
	evalTimeout time.Duration

	mu            sync.Mutex
	conn          *cdpConn
	httpClient    *http.Client
	tabs          map[target.ID]*tabSession
	chartToTarget map[string]target.ID

	chartLocksMu sync.Mutex
	chartLocks   map[string]*sync.Mutex

	// sessionCharts maps attached CDP session IDs back to chart IDs so binding
	// calls can be routed.
	sessionsMu    sync.RWMutex
	sessionCharts map[string]string

	streamsMu sync.RWMutex
	streams   map[string]*hookStream
}

func NewClient(cdpURL, tabFilter string, evalTimeout time.Duration) *Client {
	return &Client{
		cdpURL:        cdpURL,
		tabFilter:     strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout:   evalTimeout,
		tabs:          make(map[target.ID]*tabSession),
		chartToTarget: make(map[string]target.ID),
		chartLocks:    make(map[string]*sync.Mutex),
		sessionCharts: make(map[string]string),
		streams:       make(map[string]*hookStream),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.conn = newCDPConn(c.cdpURL, c.httpClient)
	if err := c.conn.dial(ctx); err != nil {
		c.conn = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}
	c.conn.subscribe("Runtime.bindingCalled", c.handleBindingCalled)

	if err := c.syncTabsLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial tab sync failed", "error", err)
		c.cleanupLocked()
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "tabs", len(c.tabs))
	return nil
}

func (c *Client) Close() error {
	c.streamsMu.Lock()
	streams := c.streams
	c.streams = make(map[string]*hookStream)
	c.streamsMu.Unlock()
	for _, s := range streams {
		s.stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

// cleanupLocked detaches every session, leaving the tabs open, and drops the
// connection along with all routing state.
func (c *Client) cleanupLocked() {
	if c.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		for _, session := range c.tabs {
			session.mu.Lock()
			if sid := session.sessionID; sid != "" {
				if err := c.conn.detach(ctx, sid); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "session_id", sid, "error", err)
				}
				session.sessionID = ""
			}
			session.mu.Unlock()
		}
		cancel()
		c.conn.hangup()
		c.conn = nil
	}
	c.tabs = make(map[target.ID]*tabSession)
	c.chartToTarget = make(map[string]target.ID)

	c.sessionsMu.Lock()
	c.sessionCharts = make(map[string]string)
	c.sessionsMu.Unlock()
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

// OpenTab opens url in a new browser window. The tab shows up in ListCharts
// once it matches the tab filter and has a chart URL.
func (c *Client) OpenTab(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return newError(CodeValidation, "url is required", nil)
	}
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}
	id, err := conn.createTarget(ctx, url)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to open tab", err)
	}
	slog.Info("cdpcontrol tab opened", "target_id", id, "url", url)
	return nil
}

func (c *Client) ListCharts(ctx context.Context) ([]ChartInfo, error) {
	if err := c.refreshTabs(ctx); err != nil {
		slog.Warn("cdpcontrol list charts failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	charts := make([]ChartInfo, 0, len(c.tabs))
	for _, s := range c.tabs {
		if s != nil {
			charts = append(charts, s.info)
		}
	}
	c.mu.Unlock()

	sort.Slice(charts, func(i, j int) bool {
		return charts[i].ChartID < charts[j].ChartID
	})
	slog.Debug("cdpcontrol list charts", "count", len(charts))
	return charts, nil
}

func (c *Client) ChartIdentity(ctx context.Context, chartID string) (ChartIdentity, error) {
	var out ChartIdentity
	if err := c.evalOnChart(ctx, chartID, jsChartIdentity(), &out); err != nil {
		return ChartIdentity{}, err
	}
	if out.Symbol == "" || out.Resolution == "" {
		return ChartIdentity{}, newError(CodeAPIUnavailable, "chart identity incomplete", nil)
	}
	out.ChartType = ChartTypeName(out.ChartTypeID)
	return out, nil
}

func (c *Client) GetSymbolInfo(ctx context.Context, chartID string) (SymbolInfo, error) {
	var out SymbolInfo
	err := c.evalOnChart(ctx, chartID, jsGetSymbolInfo(), &out)
	if err != nil {
		return SymbolInfo{}, err
	}
	return out, nil
}

func (c *Client) CreateShape(ctx context.Context, chartID string, point ShapePoint, opts ShapeOptions) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.evalOnChart(ctx, chartID, jsCreateShape(jsJSON(point), jsJSON(opts)), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) CreateMultipointShape(ctx context.Context, chartID string, points []ShapePoint, opts ShapeOptions) (string, error) {
	if len(points) < 2 {
		return "", newError(CodeValidation, "multipoint shape needs at least two points", nil)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.evalOnChart(ctx, chartID, jsCreateMultipointShape(jsJSON(points), jsJSON(opts)), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) SetShapePoints(ctx context.Context, chartID, shapeID string, points []ShapePoint) error {
	return c.evalOnChart(ctx, chartID, jsSetShapePoints(shapeID, jsJSON(points)), nil)
}

func (c *Client) RemoveEntity(ctx context.Context, chartID, shapeID string) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.evalOnChart(ctx, chartID, jsRemoveEntity(shapeID), &out); err != nil {
		return err
	}
	if out.Status == "" {
		return newError(CodeEvalFailure, "empty remove-entity status", nil)
	}
	return nil
}

func (c *Client) ShowPanel(ctx context.Context, chartID string, panel Panel) error {
	return c.evalOnChart(ctx, chartID, jsShowPanel(jsJSON(panel)), nil)
}

func (c *Client) HidePanel(ctx context.Context, chartID string) error {
	return c.evalOnChart(ctx, chartID, jsHidePanel(), nil)
}

func (c *Client) ShowText(ctx context.Context, chartID, name, text string) error {
	return c.evalOnChart(ctx, chartID, jsShowText(name, text), nil)
}

func (c *Client) RemoveText(ctx context.Context, chartID, name string) error {
	return c.evalOnChart(ctx, chartID, jsRemoveText(name), nil)
}

func (c *Client) ForegroundColor(ctx context.Context, chartID string) (string, error) {
	var out struct {
		Color string `json:"color"`
	}
	if err := c.evalOnChart(ctx, chartID, jsForegroundColor(), &out); err != nil {
		return "", err
	}
	return out.Color, nil
}

func (c *Client) VisiblePriceRange(ctx context.Context, chartID string) (PriceRange, error) {
	var out PriceRange
	if err := c.evalOnChart(ctx, chartID, jsVisiblePriceRange(), &out); err != nil {
		return PriceRange{}, err
	}
	return out, nil
}

func (c *Client) GetVisibleRange(ctx context.Context, chartID string) (VisibleRange, error) {
	var out VisibleRange
	if err := c.evalOnChart(ctx, chartID, jsGetVisibleRange(), &out); err != nil {
		return VisibleRange{}, err
	}
	return out, nil
}

func (c *Client) SetVisibleRange(ctx context.Context, chartID string, from, to float64) (VisibleRange, error) {
	if to <= from {
		return VisibleRange{}, newError(CodeValidation, "visible range end must be after start", nil)
	}
	var out VisibleRange
	if err := c.evalOnChart(ctx, chartID, jsSetVisibleRange(from, to), &out); err != nil {
		return VisibleRange{}, err
	}
	return out, nil
}

// BarTimes returns the open times (unix seconds, ascending) of every bar the
// chart currently has loaded.
func (c *Client) BarTimes(ctx context.Context, chartID string) ([]int64, error) {
	var out struct {
		Times []int64 `json:"times"`
	}
	if err := c.evalOnChart(ctx, chartID, jsBarTimes(), &out); err != nil {
		return nil, err
	}
	if out.Times == nil {
		return []int64{}, nil
	}
	return out.Times, nil
}

// RequestMoreHistory asks the data feed for older bars and reports how many
// arrived. Zero means the feed has nothing older.
func (c *Client) RequestMoreHistory(ctx context.Context, chartID string) (int, error) {
	var out struct {
		Loaded int `json:"loaded"`
	}
	if err := c.evalOnChart(ctx, chartID, jsRequestMoreHistory(), &out); err != nil {
		return 0, err
	}
	return out.Loaded, nil
}

// InstallHooks subscribes the page to crosshair, mouse-down and visible-range
// changes. Safe to call repeatedly.
func (c *Client) InstallHooks(ctx context.Context, chartID string) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.evalOnChart(ctx, chartID, jsInstallHooks(bindingName), &out); err != nil {
		return err
	}
	slog.Debug("cdpcontrol hooks installed", "chart_id", chartID, "status", out.Status)
	return nil
}
