package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var (
	errNotConnected = errors.New("cdp: not connected")
	errConnClosed   = errors.New("cdp: connection closed")
)

// cdpConn is one browser-level DevTools websocket with page sessions
// flattened onto it. It attaches only to the chart tabs it is asked about;
// no auto-attach or target discovery is ever enabled.
type cdpConn struct {
	httpBase string
	hc       *http.Client

	connMu  sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
	ids     atomic.Int64

	waitMu  sync.Mutex
	waiting map[int64]chan cdpFrame

	subsMu sync.RWMutex
	subs   map[string][]cdpSubscriber
}

type cdpSubscriber struct {
	id int64
	fn func(sessionID string, params json.RawMessage)
}

// cdpFrame is a message read from the socket: a reply when ID is set,
// otherwise an event.
type cdpFrame struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *cdpError       `json:"error,omitempty"`
}

type cdpError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

func newCDPConn(httpBase string, hc *http.Client) *cdpConn {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &cdpConn{
		httpBase: strings.TrimRight(httpBase, "/"),
		hc:       hc,
		waiting:  make(map[int64]chan cdpFrame),
		subs:     make(map[string][]cdpSubscriber),
	}
}

func (c *cdpConn) dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return nil
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.getJSON(versionCtx, "/json/version", &version); err != nil {
		return fmt.Errorf("cdp: browser endpoint: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return errors.New("cdp: browser endpoint: empty webSocketDebuggerUrl")
	}

	slog.Debug("cdp dialing", "ws_url", version.WebSocketDebuggerURL)
	conn, _, _, err := ws.Dial(ctx, version.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("cdp: dial: %w", err)
	}
	c.conn = conn
	go c.readLoop(conn)
	return nil
}

func (c *cdpConn) hangup() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		slog.Debug("cdp close failed", "error", err)
	}
	c.conn = nil
}

// readLoop runs until conn fails. Event subscribers are called inline and
// must not block on replies from this loop.
func (c *cdpConn) readLoop(conn net.Conn) {
	defer c.failWaiting()
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("cdp read loop exit", "error", err)
			return
		}
		var f cdpFrame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Debug("cdp undecodable frame", "error", err)
			continue
		}
		if f.ID == 0 {
			if f.Method != "" {
				c.publish(f.Method, f.SessionID, f.Params)
			}
			continue
		}
		if ch := c.takeWaiter(f.ID); ch != nil {
			ch <- f
		}
	}
}

func (c *cdpConn) takeWaiter(id int64) chan cdpFrame {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	ch := c.waiting[id]
	delete(c.waiting, id)
	return ch
}

func (c *cdpConn) failWaiting() {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	for id, ch := range c.waiting {
		close(ch)
		delete(c.waiting, id)
	}
}

// call sends method on sessionID ("" addresses the browser) and decodes the
// reply's result into out when out is non-nil.
func (c *cdpConn) call(ctx context.Context, sessionID, method string, params, out any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("%s: %w", method, errNotConnected)
	}

	id := c.ids.Add(1)
	data, err := json.Marshal(struct {
		ID        int64  `json:"id"`
		SessionID string `json:"sessionId,omitempty"`
		Method    string `json:"method"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, SessionID: sessionID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%s: encode: %w", method, err)
	}

	ch := make(chan cdpFrame, 1)
	c.waitMu.Lock()
	c.waiting[id] = ch
	c.waitMu.Unlock()

	c.writeMu.Lock()
	err = wsutil.WriteClientText(conn, data)
	c.writeMu.Unlock()
	if err != nil {
		c.takeWaiter(id)
		return fmt.Errorf("%s: write: %w", method, err)
	}

	var reply cdpFrame
	select {
	case f, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, errConnClosed)
		}
		reply = f
	case <-ctx.Done():
		c.takeWaiter(id)
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
	if reply.Error != nil {
		return fmt.Errorf("%s: %w", method, reply.Error)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return fmt.Errorf("%s: decode: %w", method, err)
	}
	return nil
}

func (c *cdpConn) attach(ctx context.Context, targetID target.ID) (string, error) {
	var res target.AttachToTargetReturns
	params := target.AttachToTarget(targetID).WithFlatten(true)
	if err := c.call(ctx, "", target.CommandAttachToTarget, params, &res); err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", fmt.Errorf("%s: empty session id", target.CommandAttachToTarget)
	}
	return string(res.SessionID), nil
}

// detach leaves the tab open.
func (c *cdpConn) detach(ctx context.Context, sessionID string) error {
	params := target.DetachFromTarget().WithSessionID(target.SessionID(sessionID))
	return c.call(ctx, "", target.CommandDetachFromTarget, params, nil)
}

// createTarget opens url in a new browser window.
func (c *cdpConn) createTarget(ctx context.Context, url string) (target.ID, error) {
	var res target.CreateTargetReturns
	params := target.CreateTarget(url).WithNewWindow(true)
	if err := c.call(ctx, "", target.CommandCreateTarget, params, &res); err != nil {
		return "", err
	}
	return res.TargetID, nil
}

// exposeBinding enables the runtime domain on the session and installs
// window[name]. Calls to it arrive as Runtime.bindingCalled events.
func (c *cdpConn) exposeBinding(ctx context.Context, sessionID, name string) error {
	if err := c.call(ctx, sessionID, runtime.CommandEnable, runtime.Enable(), nil); err != nil {
		return err
	}
	return c.call(ctx, sessionID, runtime.CommandAddBinding, runtime.AddBinding(name), nil)
}

// evaluate runs js on the session, awaiting promises, and returns the
// result. String results are unquoted; other values come back as JSON.
func (c *cdpConn) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	var res struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	params := runtime.Evaluate(js).WithReturnByValue(true).WithAwaitPromise(true)
	if err := c.call(ctx, sessionID, runtime.CommandEvaluate, params, &res); err != nil {
		return "", err
	}
	if d := res.ExceptionDetails; d != nil {
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		return "", fmt.Errorf("%s: exception: %s", runtime.CommandEvaluate, msg)
	}

	var s string
	if err := json.Unmarshal(res.Result.Value, &s); err != nil {
		return string(res.Result.Value), nil
	}
	return s, nil
}

// listTargets reads the HTTP target list, which also covers tabs opened
// before this connection existed.
func (c *cdpConn) listTargets(ctx context.Context) ([]*target.Info, error) {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := c.getJSON(listCtx, "/json/list", &entries); err != nil {
		return nil, err
	}
	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

func (c *cdpConn) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// subscribe registers fn for a CDP event method and returns its removal.
func (c *cdpConn) subscribe(method string, fn func(sessionID string, params json.RawMessage)) func() {
	id := c.ids.Add(1)
	c.subsMu.Lock()
	c.subs[method] = append(c.subs[method], cdpSubscriber{id: id, fn: fn})
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		subs := c.subs[method]
		for i, s := range subs {
			if s.id == id {
				c.subs[method] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (c *cdpConn) publish(method, sessionID string, params json.RawMessage) {
	c.subsMu.RLock()
	subs := c.subs[method]
	c.subsMu.RUnlock()
	for _, s := range subs {
		s.fn(sessionID, params)
	}
}
