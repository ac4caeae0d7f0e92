package crosshair

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// minMoveInterval bounds the mouse-move rate per overlay.
const minMoveInterval = time.Millisecond

// HandleMouseMove is the host's mouse-move callback: it updates this chart
// and mirrors the sample onto every peer in scope.
func (o *Overlay) HandleMouseMove(ctx context.Context, evt MouseEvent) error {
	now := o.coord.now()

	o.mu.Lock()
	if !o.lastMove.IsZero() && now.Sub(o.lastMove) < minMoveInterval {
		o.mu.Unlock()
		return nil
	}
	o.lastMove = now
	err := o.showLocked(ctx, evt.Time, evt.Price, evt.Modifier)
	o.mu.Unlock()
	if err != nil {
		return err
	}

	peers := o.coord.registry.Matching(o, o.opts.Scope)
	applied := 0
	if len(peers) > 0 {
		src, err := o.chart.VisiblePriceRange(ctx)
		if err != nil {
			return fmt.Errorf("visible price range: %w", err)
		}
		for _, p := range peers {
			err := o.touchPeer(ctx, p, "mouse-move", func(ctx context.Context) error {
				dst, err := p.Overlay.chart.VisiblePriceRange(ctx)
				if err != nil {
					return fmt.Errorf("visible price range: %w", err)
				}
				return p.Overlay.ShowCrosshair(ctx, evt.Time, Remap(evt.Price, src, dst), evt.Modifier)
			})
			if err == nil {
				applied++
			}
		}
	}

	o.coord.emit(Event{
		Kind:       EventCrosshair,
		Key:        o.key.String(),
		InstanceID: o.id,
		Time:       evt.Time,
		Price:      evt.Price,
		Modifier:   evt.Modifier,
		Peers:      applied,
	})
	return nil
}

// HandleMouseDown is the host's mouse-down callback. It does nothing unless
// a gesture is in progress; otherwise it resets this chart and every peer.
func (o *Overlay) HandleMouseDown(ctx context.Context, _ MouseEvent) error {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return nil
	}
	err := o.resetLocked(ctx)
	o.mu.Unlock()
	if err != nil {
		return err
	}

	applied := 0
	for _, p := range o.coord.registry.Matching(o, o.opts.Scope) {
		if err := o.touchPeer(ctx, p, "mouse-down", p.Overlay.OnMouseDown); err == nil {
			applied++
		}
	}

	o.coord.emit(Event{
		Kind:       EventReset,
		Key:        o.key.String(),
		InstanceID: o.id,
		Peers:      applied,
	})
	return nil
}

// touchPeer runs fn against a peer. Any error or panic evicts the peer and is
// returned to the caller for counting only; it never aborts the fan-out.
func (o *Overlay) touchPeer(ctx context.Context, p Peer, op string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			o.evictPeer(p, op, err)
		}
	}()
	return fn(ctx)
}

func (o *Overlay) evictPeer(p Peer, op string, cause error) {
	removed := o.coord.registry.evictIf(p.Key, p.Overlay)
	slog.Warn("crosshair peer evicted",
		"source", o.key.String(),
		"peer", p.Key.String(),
		"op", op,
		"removed", removed,
		"error", cause,
	)
	o.coord.emit(Event{
		Kind:       EventEvict,
		Key:        p.Key.String(),
		InstanceID: p.Overlay.id,
		Error:      cause.Error(),
	})
}
