package feed

import (
	"sync"

	"channelbuyer/internal/models"
)

// Hub fans appended ledger rows out to websocket subscribers. Slow consumers
// drop messages rather than stalling the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.TradeLog]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.TradeLog]struct{})}
}

func (h *Hub) PublishTrade(entry models.TradeLog) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Subscribe registers a feed consumer. The returned cancel func must be
// called exactly once; the channel is closed by it.
func (h *Hub) Subscribe(buffer int) (<-chan models.TradeLog, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.TradeLog, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
