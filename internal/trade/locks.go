package trade

import "sync"

// channelLocks hands out one mutex per channel id. The pipeline holds the
// channel's mutex from the throttle read through the ledger append, so two
// near-simultaneous detections for the same channel cannot both pass the
// throttle check. Locks are never removed; the set of traded channels is
// small and bounded by configuration.
type channelLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *channelLocks) lockFor(channelID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[channelID] = l
	}
	return l
}
