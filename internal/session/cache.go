package session

import (
	"sort"
	"sync"
)

// channelCache maps a channel index to the unit handle created for it. Handles
// are created at most once per channel and never evicted; a failed creation is
// not cached so a unit that appears later can still be resolved.
type channelCache[T any] struct {
	mu     sync.RWMutex
	items  map[uint]T
	create func(channel uint) (T, bool)
}

func newChannelCache[T any](create func(channel uint) (T, bool)) *channelCache[T] {
	return &channelCache[T]{
		items:  make(map[uint]T),
		create: create,
	}
}

func (c *channelCache[T]) get(channel uint) (T, bool) {
	c.mu.RLock()
	item, ok := c.items[channel]
	c.mu.RUnlock()
	if ok {
		return item, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Double-check: another caller may have created it meanwhile.
	if item, ok := c.items[channel]; ok {
		return item, true
	}
	item, ok = c.create(channel)
	if !ok {
		return item, false
	}
	c.items[channel] = item
	return item, true
}

// channels returns the populated channels in ascending order.
func (c *channelCache[T]) channels() []uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint, 0, len(c.items))
	for ch := range c.items {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
