package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
)

// Feeds lists the feed names Publisher emits, one per crosshair event kind.
var Feeds = []string{
	string(crosshair.EventCrosshair),
	string(crosshair.EventReset),
	string(crosshair.EventScroll),
	string(crosshair.EventEvict),
	string(crosshair.EventHistoryExhausted),
}

// Publisher returns a crosshair observer that JSON-encodes every sync event
// onto broker, using the event kind as the feed name. Events are retained
// for resuming clients even while nobody is connected.
func Publisher(broker *Broker) crosshair.Observer {
	return func(evt crosshair.Event) {
		payload, err := json.Marshal(evt)
		if err != nil {
			slog.Debug("relay: encode event failed", "kind", evt.Kind, "error", err)
			return
		}
		broker.Publish(Event{Feed: string(evt.Kind), Payload: string(payload)})
	}
}
