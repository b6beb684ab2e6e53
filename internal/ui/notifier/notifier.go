// Package notifier wakes the update streams of one conversation.
package notifier

import "sync"

// Subscription receives a ping whenever new updates are available. C is
// closed when the subscription or its notifier is closed.
type Subscription struct {
	C chan struct{}

	n    *Notifier
	once sync.Once
}

// Close removes the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.n.remove(s)
}

// Notifier fans pings out to subscriptions. Pings carry no data: a woken
// listener reads whatever it has not seen yet.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe returns a new subscription. The first ping is queued so the
// listener catches up immediately. On a closed notifier the returned
// subscription is already closed.
func (n *Notifier) Subscribe() *Subscription {
	s := &Subscription{C: make(chan struct{}, 1), n: n}
	s.C <- struct{}{}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		s.once.Do(func() { close(s.C) })
		return s
	}
	n.subs[s] = struct{}{}
	return s
}

func (n *Notifier) remove(s *Subscription) {
	n.mu.Lock()
	delete(n.subs, s)
	n.mu.Unlock()
	s.once.Do(func() { close(s.C) })
}

// Broadcast pings every subscription without blocking. A subscription
// that already has a pending ping is skipped.
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for s := range n.subs {
		select {
		case s.C <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of open subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close closes every subscription and rejects new ones.
func (n *Notifier) Close() {
	n.mu.Lock()
	subs := n.subs
	n.subs = make(map[*Subscription]struct{})
	n.closed = true
	n.mu.Unlock()

	for s := range subs {
		s.once.Do(func() { close(s.C) })
	}
}
