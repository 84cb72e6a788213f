package session

import (
	"sync"

	"pkg.parley.chat/parley/internal/gateway"
)

type chunkProgress struct {
	expected int
	received int
	chunks   [][]gateway.MemberPayload
}

// chunkAccumulator gathers member chunks per guild until the expected
// total announced at chunk-request time has arrived.
type chunkAccumulator struct {
	mu      sync.Mutex
	pending map[string]*chunkProgress
}

func newChunkAccumulator() *chunkAccumulator {
	return &chunkAccumulator{pending: make(map[string]*chunkProgress)}
}

func (a *chunkAccumulator) expect(guildID string, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[guildID] = &chunkProgress{expected: total}
}

// add appends one chunk and, once the expected total is reached, returns
// all gathered chunks and clears the guild's progress.
func (a *chunkAccumulator) add(guildID string, members []gateway.MemberPayload) ([][]gateway.MemberPayload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[guildID]
	if !ok {
		// No expectation registered; hand the chunk through so the builder
		// can surface the bookkeeping failure.
		return [][]gateway.MemberPayload{members}, true
	}

	p.chunks = append(p.chunks, members)
	p.received += len(members)
	if p.received < p.expected {
		return nil, false
	}
	delete(a.pending, guildID)
	return p.chunks, true
}
