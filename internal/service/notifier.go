package service

import (
	"sync"

	"funplanet-backend/internal/model"

	"github.com/google/uuid"
)

// Notifier fans claim status events out to per-user subscribers (the
// websocket layer). Slow subscribers are skipped rather than blocking the
// claim pipeline.
type Notifier struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan model.ClaimEvent]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[uuid.UUID]map[chan model.ClaimEvent]struct{}),
	}
}

func (n *Notifier) Subscribe(userID uuid.UUID) chan model.ClaimEvent {
	ch := make(chan model.ClaimEvent, 16)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[userID] == nil {
		n.subs[userID] = make(map[chan model.ClaimEvent]struct{})
	}
	n.subs[userID][ch] = struct{}{}

	return ch
}

func (n *Notifier) Unsubscribe(userID uuid.UUID, ch chan model.ClaimEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if subs, ok := n.subs[userID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(n.subs, userID)
		}
	}
	close(ch)
}

func (n *Notifier) Publish(userID uuid.UUID, event model.ClaimEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.subs[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}
