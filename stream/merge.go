package stream

import "sync"

// Merged fans events from several upstream streams into one subscription
// point with a single disposal handle. The entity that created the merge
// owns calling Dispose; disposal is idempotent and severs every
// subscription the merge created, upstream and downstream alike.
type Merged struct {
	out        *Stream
	owned      bool
	upstream   []*Subscription
	mu         sync.Mutex
	downstream []*Subscription
	disposed   sync.Once
}

// Merge combines primary with any number of extra sources. Events are
// forwarded in arrival order, without deduplication.
//
// When every extra source is nil the primary stream itself backs the
// merge: nothing is allocated on the event path and Dispose leaves the
// primary stream untouched, canceling only subscriptions made through
// the merge.
func Merge(primary *Stream, extras ...*Stream) *Merged {
	live := extras[:0]
	for _, e := range extras {
		if e != nil {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return &Merged{out: primary}
	}

	out := New()
	m := &Merged{out: out, owned: true}
	m.upstream = append(m.upstream, primary.Subscribe(out.Emit))
	for _, e := range live {
		m.upstream = append(m.upstream, e.Subscribe(out.Emit))
	}
	return m
}

// Subscribe registers fn on the merged stream.
func (m *Merged) Subscribe(fn func()) *Subscription {
	sub := m.out.Subscribe(fn)
	m.mu.Lock()
	m.downstream = append(m.downstream, sub)
	m.mu.Unlock()
	return sub
}

// Dispose unsubscribes from every upstream source exactly once and stops
// delivery to every subscriber of the merge. Safe to call repeatedly. It
// carries the same cancellation window as Subscription.Cancel: a
// delivery already running on another goroutine may still complete.
func (m *Merged) Dispose() {
	m.disposed.Do(func() {
		for _, sub := range m.upstream {
			sub.Cancel()
		}
		m.mu.Lock()
		down := m.downstream
		m.downstream = nil
		m.mu.Unlock()
		for _, sub := range down {
			sub.Cancel()
		}
		if m.owned {
			m.out.Close()
		}
	})
}
