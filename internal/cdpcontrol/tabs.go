package cdpcontrol

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/target"
)

var chartURLPattern = regexp.MustCompile(`/chart/([^/?#]+)/?`)

// tabSession is one chart tab. sessionID is empty until the first eval
// attaches, and again after a failed eval so the next one re-attaches.
type tabSession struct {
	info ChartInfo

	mu        sync.Mutex
	sessionID string
}

func chartIDFromURL(url string) string {
	m := chartURLPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// chartTabs keeps the page targets that show a chart and pass the tab filter.
func (c *Client) chartTabs(targets []*target.Info) map[target.ID]ChartInfo {
	out := make(map[target.ID]ChartInfo)
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if c.tabFilter != "" && !strings.Contains(strings.ToLower(t.URL), c.tabFilter) {
			continue
		}
		chartID := chartIDFromURL(t.URL)
		if chartID == "" {
			continue
		}
		out[t.TargetID] = ChartInfo{ChartID: chartID, TargetID: string(t.TargetID), URL: t.URL, Title: t.Title}
	}
	return out
}

// syncTabsLocked reconciles c.tabs with the browser's target list. Tabs that
// closed lose their session routing; surviving tabs keep their session.
func (c *Client) syncTabsLocked(ctx context.Context) error {
	if c.conn == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}
	targets, err := c.conn.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}
	live := c.chartTabs(targets)

	for id, session := range c.tabs {
		if _, ok := live[id]; ok {
			continue
		}
		session.mu.Lock()
		c.forgetSession(session.sessionID)
		session.mu.Unlock()
		delete(c.tabs, id)
	}
	for id, info := range live {
		if session, ok := c.tabs[id]; ok {
			session.info = info
			continue
		}
		c.tabs[id] = &tabSession{info: info}
	}

	// The same chart layout open in two tabs resolves to the lower target id.
	c.chartToTarget = make(map[string]target.ID, len(c.tabs))
	for id, session := range c.tabs {
		chartID := session.info.ChartID
		if prev, dup := c.chartToTarget[chartID]; dup {
			slog.Debug("cdpcontrol chart open in several tabs", "chart_id", chartID, "targets", []target.ID{prev, id})
			if prev < id {
				continue
			}
		}
		c.chartToTarget[chartID] = id
	}

	c.chartLocksMu.Lock()
	for id := range c.chartLocks {
		if _, ok := c.chartToTarget[id]; !ok {
			delete(c.chartLocks, id)
		}
	}
	c.chartLocksMu.Unlock()

	slog.Debug("cdpcontrol tab sync", "targets", len(targets), "charts", len(c.chartToTarget))
	return nil
}

func (c *Client) refreshTabs(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncTabsLocked(ctx)
}

// resolveChartSession finds the chart's tab, re-reading the target list once
// when it is not known yet.
func (c *Client) resolveChartSession(ctx context.Context, chartID string) (*tabSession, ChartInfo, error) {
	if session, info, ok := c.lookupChartSession(chartID); ok {
		return session, info, nil
	}
	if err := c.refreshTabs(ctx); err != nil {
		return nil, ChartInfo{}, err
	}
	if session, info, ok := c.lookupChartSession(chartID); ok {
		return session, info, nil
	}
	return nil, ChartInfo{}, newError(CodeChartNotFound, "chart not found: "+chartID, nil)
}

func (c *Client) lookupChartSession(chartID string) (*tabSession, ChartInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session := c.tabs[c.chartToTarget[chartID]]
	if session == nil {
		return nil, ChartInfo{}, false
	}
	return session, session.info, true
}

func (c *Client) forgetSession(sessionID string) {
	if sessionID == "" {
		return
	}
	c.sessionsMu.Lock()
	delete(c.sessionCharts, sessionID)
	c.sessionsMu.Unlock()
}

func (c *Client) chartForSession(sessionID string) (string, bool) {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()
	id, ok := c.sessionCharts[sessionID]
	return id, ok
}

// chartLock serializes evals per chart; overlay updates for one chart must
// not interleave.
func (c *Client) chartLock(chartID string) *sync.Mutex {
	c.chartLocksMu.Lock()
	defer c.chartLocksMu.Unlock()
	m, ok := c.chartLocks[chartID]
	if !ok {
		m = &sync.Mutex{}
		c.chartLocks[chartID] = m
	}
	return m
}
