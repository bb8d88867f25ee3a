// Package stream provides the change-notification primitive used to drive
// map layer rebuilds: a broadcast Stream of empty events, Subscriptions
// with idempotent cancellation, and a Merge combinator fanning several
// streams into one with a single disposal handle.
package stream

import (
	"sync"
	"sync/atomic"
)

// Stream is a broadcast source of change events. Events carry no payload;
// an emission means "something changed, recompute". Subscribers are
// notified synchronously, in subscription order.
type Stream struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// New creates an empty stream.
func New() *Stream {
	return &Stream{}
}

// Subscribe registers fn to be called on every subsequent emission and
// returns the handle used to cancel delivery.
func (s *Stream) Subscribe(fn func()) *Subscription {
	sub := &Subscription{stream: s, fn: fn}
	s.mu.Lock()
	if s.closed {
		sub.canceled.Store(true)
	} else {
		s.subs = append(s.subs, sub)
	}
	s.mu.Unlock()
	return sub
}

// Emit delivers one event to every live subscriber. Subscribers canceled
// before their turn, including from within an earlier subscriber's
// callback, are skipped.
func (s *Stream) Emit() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.canceled.Load() {
			continue
		}
		sub.fn()
	}
}

// Close cancels every subscription and makes further Emit and Subscribe
// calls no-ops. Close is idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.canceled.Store(true)
	}
}

func (s *Stream) remove(sub *Subscription) {
	s.mu.Lock()
	for i, cur := range s.subs {
		if cur == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	stream   *Stream
	fn       func()
	canceled atomic.Bool
}

// Cancel stops delivery. It is idempotent and safe on a nil receiver.
// No emission started after Cancel returns invokes the callback; it
// does not wait for a delivery already running on another goroutine, so
// one in-flight callback may still complete concurrently with Cancel.
func (sub *Subscription) Cancel() {
	if sub == nil || !sub.canceled.CompareAndSwap(false, true) {
		return
	}
	sub.stream.remove(sub)
}
