package progress

import "sync"

// Hub fans progress updates out to per-session subscribers. Delivery is
// non-blocking: a subscriber that cannot keep up loses updates rather than
// stalling the reporting path.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Update]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Update]struct{})}
}

// Report delivers the update to all subscribers of the session.
func (h *Hub) Report(sessionID string, u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribe registers a subscriber for a session's updates. The returned
// cancel func must be called to release the subscription.
func (h *Hub) Subscribe(sessionID string) (<-chan Update, func()) {
	ch := make(chan Update, 32)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Update]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

var _ Reporter = (*Hub)(nil)
