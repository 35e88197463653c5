package feed

import (
	"testing"
	"time"

	"channelbuyer/internal/models"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.PublishTrade(models.TradeLog{ID: "t1", Status: models.TradeStatusDry})

	for name, ch := range map[string]<-chan models.TradeLog{"a": a, "b": b} {
		select {
		case entry := <-ch:
			if entry.ID != "t1" {
				t.Fatalf("%s: wrong entry %s", name, entry.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no entry received", name)
		}
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.PublishTrade(models.TradeLog{ID: "t1"})
	h.PublishTrade(models.TradeLog{ID: "t2"}) // dropped, buffer full

	entry := <-ch
	if entry.ID != "t1" {
		t.Fatalf("expected t1, got %s", entry.ID)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra entry %s", extra.ID)
	default:
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("channel must be closed after cancel")
	}
	// Publishing after cancel must not panic or block.
	h.PublishTrade(models.TradeLog{ID: "t3"})
}
