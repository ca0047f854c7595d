package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ecodrive/ecodrive/internal/geo"
)

type mockSource struct {
	updates        chan Update
	err            error
	subscribeCount atomic.Int32
}

func (m *mockSource) Subscribe(ctx context.Context) (<-chan Update, error) {
	m.subscribeCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.updates, nil
}

type mockView struct {
	mu        sync.Mutex
	recenters []geo.Coordinate
	rotations []float64
	markers   []geo.Coordinate
}

func (v *mockView) MoveMarker(c geo.Coordinate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, c)
}

func (v *mockView) Recenter(c geo.Coordinate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recenters = append(v.recenters, c)
}

func (v *mockView) Rotate(rad float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rotations = append(v.rotations, rad)
}

func (v *mockView) recenterCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.recenters)
}

func (v *mockView) markerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.markers)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTracker_Start_Idempotent(t *testing.T) {
	source := &mockSource{updates: make(chan Update)}
	tr := New(Config{Source: source})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("second start should be a no-op: %v", err)
	}

	if source.subscribeCount.Load() != 1 {
		t.Errorf("expected 1 subscription, got %d", source.subscribeCount.Load())
	}
}

func TestTracker_Start_Concurrent(t *testing.T) {
	source := &mockSource{updates: make(chan Update)}
	tr := New(Config{Source: source})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tr.Start(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if source.subscribeCount.Load() != 1 {
		t.Errorf("expected 1 subscription, got %d", source.subscribeCount.Load())
	}
}

func TestTracker_Start_RetryAfterDenied(t *testing.T) {
	source := &mockSource{err: ErrPermissionDenied}
	tr := New(Config{Source: source})

	if err := tr.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	// Permission granted later: a fresh Start must subscribe again.
	source.err = nil
	source.updates = make(chan Update)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.subscribeCount.Load() != 2 {
		t.Errorf("expected 2 subscription attempts, got %d", source.subscribeCount.Load())
	}
	if !tr.Current().Running {
		t.Error("tracker should be running after granted start")
	}
}

func TestTracker_Start_PermissionDenied(t *testing.T) {
	source := &mockSource{err: ErrPermissionDenied}
	tr := New(Config{Source: source})

	err := tr.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if tr.Current().Running {
		t.Error("tracker should not be running after denied start")
	}
}

func TestTracker_SetFollow_WithoutFix(t *testing.T) {
	tr := New(Config{Source: &mockSource{updates: make(chan Update)}})

	err := tr.SetFollow(true)
	if !errors.Is(err, ErrNoFix) {
		t.Errorf("expected ErrNoFix, got %v", err)
	}
	if tr.Current().Follow {
		t.Error("follow must stay off without a fix")
	}
}

func TestTracker_UpdateMovesMarkerWhenNotFollowing(t *testing.T) {
	source := &mockSource{updates: make(chan Update, 1)}
	view := &mockView{}
	tr := New(Config{Source: source, View: view})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source.updates <- Update{Position: &Position{
		Coordinate: geo.Coordinate{Lat: 48.85, Lon: 2.35},
		At:         time.Now(),
	}}

	waitFor(t, func() bool { return view.markerCount() == 1 })

	if view.recenterCount() != 0 {
		t.Error("viewport must not recenter when follow is off")
	}

	state := tr.Current()
	if state.Position == nil || state.Position.Coordinate.Lat != 48.85 {
		t.Errorf("tracked position not stored: %+v", state.Position)
	}
}

func TestTracker_FollowRecentersAndCounterRotates(t *testing.T) {
	source := &mockSource{updates: make(chan Update, 2)}
	view := &mockView{}
	tr := New(Config{Source: source, View: view})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	heading := 1.5
	source.updates <- Update{Position: &Position{
		Coordinate: geo.Coordinate{Lat: 48.85, Lon: 2.35},
		Heading:    &heading,
		At:         time.Now(),
	}}

	waitFor(t, func() bool { return tr.Current().Position != nil })

	// Turning follow on with a fix recenters immediately.
	if err := tr.SetFollow(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return view.recenterCount() >= 1 })

	view.mu.Lock()
	lastRotation := view.rotations[len(view.rotations)-1]
	view.mu.Unlock()
	if lastRotation != -1.5 {
		t.Errorf("expected counter-rotation -1.5, got %f", lastRotation)
	}

	// Subsequent updates keep recentering.
	source.updates <- Update{Position: &Position{
		Coordinate: geo.Coordinate{Lat: 48.86, Lon: 2.36},
		Heading:    &heading,
		At:         time.Now(),
	}}
	waitFor(t, func() bool { return view.recenterCount() >= 2 })
}

func TestTracker_RecoversAfterStreamError(t *testing.T) {
	source := &mockSource{updates: make(chan Update, 2)}
	tr := New(Config{Source: source})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source.updates <- Update{Err: errors.New("signal lost")}
	source.updates <- Update{Position: &Position{
		Coordinate: geo.Coordinate{Lat: 48.85, Lon: 2.35},
		At:         time.Now(),
	}}

	waitFor(t, func() bool { return tr.Current().Position != nil })

	if !tr.Current().Running {
		t.Error("tracker must keep running through stream errors")
	}
}

func TestTracker_SubscribersReceiveUpdates(t *testing.T) {
	source := &mockSource{updates: make(chan Update, 1)}
	tr := New(Config{Source: source})

	events := tr.Subscribe()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source.updates <- Update{Position: &Position{
		Coordinate: geo.Coordinate{Lat: 48.85, Lon: 2.35},
		At:         time.Now(),
	}}

	select {
	case p := <-events:
		if p.Coordinate.Lat != 48.85 {
			t.Errorf("unexpected event coordinate: %+v", p.Coordinate)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
