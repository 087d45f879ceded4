package watch

import "sync"

// Hub fans mutation signals out to live-query subscriptions. Stores call
// Notify after every committed write; subscribers re-run their query on
// each signal. Signals carry no payload, a subscriber always re-reads the
// current state, which gives read-your-writes for free.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// Notify wakes every subscriber. The per-subscriber channel has capacity
// one, so bursts of writes coalesce into a single re-query.
func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) subscribe(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}
