package tracker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Config holds configuration for the tracker.
type Config struct {
	// Source is the device location stream.
	Source Source

	// View is the map surface to drive (optional).
	View View

	// Logger for tracker operations.
	Logger zerolog.Logger
}

// Tracker consumes a device-location stream and maintains the tracked
// position, follow mode, and subscriber notifications. It never crashes on
// stream errors; a lost signal leaves it in the "no fix" state until a
// later update recovers it.
type Tracker struct {
	source Source
	view   View
	logger zerolog.Logger

	mu          sync.RWMutex
	running     bool
	position    *Position
	follow      bool
	subscribers []chan Position
}

// New creates a new tracker.
func New(cfg Config) *Tracker {
	return &Tracker{
		source: cfg.Source,
		view:   cfg.View,
		logger: cfg.Logger,
	}
}

// Start begins consuming the location stream. It is permission-gated: the
// source returns ErrPermissionDenied when the user declined. A second Start
// while already running is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	// Claim the running state before subscribing so concurrent Start
	// calls cannot both open a stream.
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.mu.Unlock()

	updates, err := t.source.Subscribe(ctx)
	if err != nil {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		t.logger.Warn().Err(err).Msg("location tracking unavailable")
		return err
	}

	go t.consume(ctx, updates)

	t.logger.Info().Msg("location tracking started")
	return nil
}

func (t *Tracker) consume(ctx context.Context, updates <-chan Update) {
	for {
		select {
		case <-ctx.Done():
			t.stop()
			return
		case update, ok := <-updates:
			if !ok {
				t.stop()
				return
			}
			if update.Err != nil {
				// Transient: keep the last fix and wait for recovery.
				t.logger.Warn().Err(update.Err).Msg("position update failed")
				continue
			}
			t.apply(*update.Position)
		}
	}
}

func (t *Tracker) stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
	t.logger.Info().Msg("location tracking stopped")
}

// apply stores the reading, drives the view, and notifies subscribers.
func (t *Tracker) apply(p Position) {
	t.mu.Lock()
	t.position = &p
	follow := t.follow
	subscribers := make([]chan Position, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.Unlock()

	if t.view != nil {
		if follow {
			t.view.Recenter(p.Coordinate)
			if p.Heading != nil {
				// Counter-rotate so up matches direction of travel.
				t.view.Rotate(-*p.Heading)
			}
		} else {
			t.view.MoveMarker(p.Coordinate)
		}
	}

	for _, ch := range subscribers {
		select {
		case ch <- p:
		default:
			// Slow subscriber: drop rather than stall the stream.
		}
	}
}

// SetFollow toggles follow mode. Turning it on with no known position
// returns ErrNoFix so the caller can tell the user, instead of recentering
// on an undefined coordinate. Turning it on with a fix recenters
// immediately.
func (t *Tracker) SetFollow(on bool) error {
	t.mu.Lock()
	if on && t.position == nil {
		t.mu.Unlock()
		return ErrNoFix
	}
	t.follow = on
	pos := t.position
	t.mu.Unlock()

	if on && t.view != nil && pos != nil {
		t.view.Recenter(pos.Coordinate)
		if pos.Heading != nil {
			t.view.Rotate(-*pos.Heading)
		}
	}

	return nil
}

// Current returns the tracker's externally visible state.
func (t *Tracker) Current() TrackedPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := TrackedPosition{Follow: t.follow, Running: t.running}
	if t.position != nil {
		cpy := *t.position
		state.Position = &cpy
	}
	return state
}

// Subscribe returns a channel of position updates. Used by the overlay and
// by planning when the source is "current location".
func (t *Tracker) Subscribe() <-chan Position {
	ch := make(chan Position, 8)

	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()

	return ch
}
