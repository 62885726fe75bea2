package policy

import (
	"sync"
	"sync/atomic"

	"github.com/kvasov/domshield/domain"
)

// notifier is the explicit publish/subscribe surface collaborators use to
// learn about verdict-affecting changes, replacing ambient storage-change
// listeners. The version counter alone suffices for poll-style consumers.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func(domain.ChangeEvent)
	next int
	ver  atomic.Uint64
}

func (n *notifier) subscribe(fn func(domain.ChangeEvent)) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func(domain.ChangeEvent))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) publish(kind domain.ChangeKind) {
	ev := domain.ChangeEvent{Kind: kind, Version: n.ver.Add(1)}
	n.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (n *notifier) version() uint64 {
	return n.ver.Load()
}
