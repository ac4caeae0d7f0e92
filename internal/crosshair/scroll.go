package crosshair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrHistoryExhausted is returned by ScrollTo when the data source has no
// bars old enough to show the requested time.
var ErrHistoryExhausted = errors.New("crosshair: no more history available")

const historyMessageLayout = "02/01/2006 15:04"

// HandleScroll is the host's visible-range callback. A callback caused by a
// scroll this process commanded consumes one suppression slot and stops; a
// genuine user scroll to a new first-visible time is mirrored to peers.
// Callbacks that arrive while the overlay is loading history are ignored.
func (o *Overlay) HandleScroll(ctx context.Context, evt ScrollEvent) error {
	if !o.opts.ScrollSync {
		return nil
	}
	if o.loadingHistory.Load() {
		slog.Debug("crosshair scroll ignored during history load", "key", o.key.String())
		return nil
	}
	if o.coord.consumeSuppression() {
		slog.Debug("crosshair scroll suppressed", "key", o.key.String(), "remaining", o.coord.PendingScrolls())
		return nil
	}

	t := evt.FirstVisible
	o.mu.Lock()
	if t.Equal(o.lastScroll) {
		o.mu.Unlock()
		return nil
	}
	o.lastScroll = t
	o.mu.Unlock()

	var peers []Peer
	for _, p := range o.coord.registry.Matching(o, o.opts.Scope) {
		if p.Overlay.opts.ScrollSync {
			peers = append(peers, p)
		}
	}
	o.coord.armSuppression(len(peers))

	scrolled := 0
	for _, p := range peers {
		moved := false
		err := o.touchPeer(ctx, p, "scroll", func(ctx context.Context) error {
			var err error
			moved, err = p.Overlay.scrollTo(ctx, t)
			if errors.Is(err, ErrHistoryExhausted) {
				return nil
			}
			return err
		})
		if err != nil || !moved {
			// No visible-range callback will arrive from this peer.
			o.coord.consumeSuppression()
			continue
		}
		scrolled++
	}

	o.coord.emit(Event{
		Kind:       EventScroll,
		Key:        o.key.String(),
		InstanceID: o.id,
		Time:       t,
		Peers:      scrolled,
	})
	return nil
}

// ScrollTo makes t the first visible bar, loading older history first when
// t predates the loaded bars. When the data source runs out, an inline
// message is drawn and ErrHistoryExhausted returned.
func (o *Overlay) ScrollTo(ctx context.Context, t time.Time) error {
	_, err := o.scrollTo(ctx, t)
	return err
}

func (o *Overlay) scrollTo(ctx context.Context, t time.Time) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	reg := o.coord.registry
	reg.SetPendingScroll(o.key, t)
	defer reg.ClearPendingScroll(o.key)

	for {
		earliest, err := o.chart.EarliestBarTime(ctx)
		if err != nil {
			return false, fmt.Errorf("earliest bar: %w", err)
		}
		if !t.Before(earliest) {
			break
		}
		o.loadingHistory.Store(true)
		loaded, err := o.chart.LoadMoreHistory(ctx)
		o.loadingHistory.Store(false)
		if err != nil {
			return false, fmt.Errorf("load history: %w", err)
		}
		if loaded == 0 {
			msg := fmt.Sprintf("No more history available before %s", t.In(o.coord.location).Format(historyMessageLayout))
			if err := o.chart.DrawStaticText(ctx, o.names.message, msg); err != nil {
				return false, fmt.Errorf("draw message: %w", err)
			}
			o.hasMessage = true
			o.coord.emit(Event{Kind: EventHistoryExhausted, Key: o.key.String(), InstanceID: o.id, Time: t})
			return false, ErrHistoryExhausted
		}
		slog.Debug("crosshair history loaded", "key", o.key.String(), "bars", loaded)
	}

	if o.hasMessage {
		if err := o.chart.RemoveObject(ctx, o.names.message); err != nil {
			return false, fmt.Errorf("remove message: %w", err)
		}
		o.hasMessage = false
	}

	first, err := o.chart.FirstVisibleBarTime(ctx)
	if err != nil {
		return false, fmt.Errorf("first visible bar: %w", err)
	}
	o.lastScroll = t
	if first.Equal(t) {
		return false, nil
	}
	if err := o.chart.ScrollToTime(ctx, t); err != nil {
		return false, fmt.Errorf("scroll: %w", err)
	}
	return true, nil
}
