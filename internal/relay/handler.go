package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SSEHandler streams broker events as server-sent events.
//
// Clients may filter by event kind with ?feeds=crosshair,scroll and resume
// after a reconnect with the standard Last-Event-ID header (or
// ?last_event_id=N). A comment line is written every heartbeat so idle
// proxies keep the stream open; zero disables it.
func SSEHandler(broker *Broker, heartbeat time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		sub := broker.Subscribe(parseFeeds(r.URL.Query().Get("feeds")), lastEventID(r))
		defer broker.Unsubscribe(sub.ID)

		for _, evt := range sub.Backlog {
			if !writeEvent(w, evt) {
				return
			}
		}
		flusher.Flush()

		var tick <-chan time.Time
		if heartbeat > 0 {
			ticker := time.NewTicker(heartbeat)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case <-tick:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case evt, ok := <-sub.Events:
				if !ok || !writeEvent(w, evt) {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, evt Event) bool {
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.ID, evt.Feed, evt.Payload); err != nil {
		slog.Debug("relay: sse write failed", "id", evt.ID, "error", err)
		return false
	}
	return true
}

// lastEventID reads the resume point; zero means live events only.
func lastEventID(r *http.Request) int64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// parseFeeds returns nil (accept all) for an empty list.
func parseFeeds(q string) []string {
	var feeds []string
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	return feeds
}
