package state

import (
	"sync"

	"pkg.parley.chat/parley/internal/gateway"
)

type pendingGuild struct {
	payload  *gateway.GuildPayload
	callback func(*Guild)
}

// pendingCache holds the raw snapshot payload and completion callback for
// guilds awaiting a deferred member chunk. Entries are consumed exactly
// once; Take is a destructive read.
type pendingCache struct {
	mu      sync.Mutex
	entries map[string]pendingGuild
}

func newPendingCache() *pendingCache {
	return &pendingCache{entries: make(map[string]pendingGuild)}
}

func (c *pendingCache) Put(guildID string, p *gateway.GuildPayload, callback func(*Guild)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[guildID] = pendingGuild{payload: p, callback: callback}
}

func (c *pendingCache) Take(guildID string) (*gateway.GuildPayload, func(*Guild), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[guildID]
	if !ok {
		return nil, nil, false
	}
	delete(c.entries, guildID)
	return e.payload, e.callback, true
}

func (c *pendingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]pendingGuild)
}
