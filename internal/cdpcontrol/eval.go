package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/chromedp/cdproto/target"
)

// transientHints mark eval failure causes worth one retry.
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"no session with given id",
}

// evalEnvelope is what every injected script returns, JSON encoded.
type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// evalOnChart runs js in the chart's tab and decodes the envelope data into
// out. After a transient failure it recovers once, by reconnecting when CDP
// itself is gone or by re-reading the tab list otherwise, and tries again.
func (c *Client) evalOnChart(ctx context.Context, chartID, js string, out any) error {
	chartID = strings.TrimSpace(chartID)
	if chartID == "" {
		return newError(CodeChartNotFound, "chart id is required", nil)
	}
	lock := c.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	err := c.evalOnce(ctx, chartID, js, out)
	if err == nil || !c.shouldRetry(err) {
		return err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "chart_id", chartID, "error", err)
	if isCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "chart_id", chartID, "error", recErr)
			return recErr
		}
	} else if syncErr := c.refreshTabs(ctx); syncErr != nil {
		slog.Warn("cdpcontrol tab refresh failed during retry", "chart_id", chartID, "error", syncErr)
	}
	return c.evalOnce(ctx, chartID, js, out)
}

func (c *Client) evalOnce(ctx context.Context, chartID, js string, out any) error {
	session, info, err := c.resolveChartSession(ctx, chartID)
	if err != nil {
		slog.Warn("cdpcontrol chart resolve failed", "chart_id", chartID, "error", err)
		return err
	}
	return c.evalOnSession(ctx, session, info.TargetID, js, out)
}

func (c *Client) evalOnSession(ctx context.Context, session *tabSession, targetID, js string, out any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	sessionID, err := c.ensureSession(ctx, conn, session, targetID)
	if err != nil {
		return err
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	defer cancel()
	raw, err := conn.evaluate(evalCtx, sessionID, js)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", targetID, "error", err)
		session.mu.Lock()
		if session.sessionID == sessionID {
			c.forgetSession(sessionID)
			session.sessionID = ""
		}
		session.mu.Unlock()

		if errors.Is(err, context.DeadlineExceeded) {
			return newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		return newError(CodeEvalFailure, "evaluation failed", err)
	}
	return decodeEnvelope(raw, out)
}

func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ensureSession attaches to the tab on first use. Bindings belong to the
// session, so every fresh attach exposes the hook binding again.
func (c *Client) ensureSession(ctx context.Context, conn *cdpConn, session *tabSession, targetID string) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.sessionID != "" {
		return session.sessionID, nil
	}

	sid, err := conn.attach(ctx, target.ID(targetID))
	if err != nil {
		return "", newError(CodeCDPUnavailable, "attach to target failed", err)
	}
	if err := conn.exposeBinding(ctx, sid, bindingName); err != nil {
		return "", newError(CodeCDPUnavailable, "expose binding failed", err)
	}
	session.sessionID = sid
	c.sessionsMu.Lock()
	c.sessionCharts[sid] = session.info.ChartID
	c.sessionsMu.Unlock()

	slog.Debug("cdpcontrol session attached", "target_id", targetID, "session_id", sid)
	return sid, nil
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code {
	case CodeCDPUnavailable:
		return true
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		return slices.ContainsFunc(transientHints, func(hint string) bool {
			return strings.Contains(cause, hint)
		})
	}
	return false
}

func isCode(err error, code string) bool {
	var coded *CodedError
	return errors.As(err, &coded) && coded.Code == code
}
