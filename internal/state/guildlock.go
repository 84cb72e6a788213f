package state

import (
	"sync"
)

// GuildLock tracks which guild ids are mid-construction. A locked guild
// must not be observed by consumers and no second build phase may begin for
// it; events arriving for a locked guild are deferred and replayed once the
// guild unlocks.
type GuildLock struct {
	mu       sync.Mutex
	locked   map[string]struct{}
	deferred map[string][]func()
}

func NewGuildLock() *GuildLock {
	return &GuildLock{
		locked:   make(map[string]struct{}),
		deferred: make(map[string][]func()),
	}
}

func (l *GuildLock) Lock(guildID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked[guildID] = struct{}{}
}

// Unlock releases the guild id and returns the replay funcs deferred while
// it was locked, in arrival order. The caller runs them outside the lock.
func (l *GuildLock) Unlock(guildID string) []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, guildID)
	replay := l.deferred[guildID]
	delete(l.deferred, guildID)
	return replay
}

func (l *GuildLock) IsLocked(guildID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.locked[guildID]
	return ok
}

// Defer queues fn for replay after guildID unlocks. It reports false, with
// fn not queued, when the guild is not locked and fn can run immediately.
func (l *GuildLock) Defer(guildID string, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.locked[guildID]; !ok {
		return false
	}
	l.deferred[guildID] = append(l.deferred[guildID], fn)
	return true
}
