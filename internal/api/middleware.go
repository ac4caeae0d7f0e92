package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const eventsPath = "/api/v1/events"

// requestLogger logs one line per request. Injected mouse moves arrive at
// pointer rate and log at debug; server errors log at warn. Event streams
// log again when they open since they stay open for the client's lifetime.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		stream := r.URL.Path == eventsPath
		if stream {
			slog.Info("http stream opened", "path", r.URL.Path, "feeds", r.URL.Query().Get("feeds"), "remote", r.RemoteAddr, "request_id", reqID)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			level = slog.LevelWarn
		case strings.HasSuffix(r.URL.Path, "/mouse-move"):
			level = slog.LevelDebug
		}
		msg := "http request"
		if stream {
			msg = "http stream closed"
		}
		slog.Log(r.Context(), level, msg,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
			"request_id", reqID,
		)
	})
}
