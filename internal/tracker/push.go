package tracker

import (
	"context"
	"sync"
)

// PushSource is a Source fed by an external producer, typically the
// presentation chrome forwarding device geolocation events. Publishing
// never blocks; slow subscribers drop updates.
type PushSource struct {
	mu   sync.Mutex
	subs []chan Update
}

var _ Source = (*PushSource)(nil)

// NewPushSource creates an empty PushSource.
func NewPushSource() *PushSource {
	return &PushSource{}
}

// Subscribe implements Source. The returned channel closes when ctx is
// cancelled.
func (s *PushSource) Subscribe(ctx context.Context) (<-chan Update, error) {
	ch := make(chan Update, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Publish delivers a position reading to all subscribers.
func (s *PushSource) Publish(p Position) {
	s.send(Update{Position: &p})
}

// Fail delivers a transient error to all subscribers. The stream stays
// open.
func (s *PushSource) Fail(err error) {
	s.send(Update{Err: err})
}

func (s *PushSource) send(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
