package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuildLock(t *testing.T) {
	l := NewGuildLock()

	require.False(t, l.IsLocked("10"))
	require.False(t, l.Defer("10", func() {}))

	l.Lock("10")
	require.True(t, l.IsLocked("10"))
	require.False(t, l.IsLocked("11"))

	var order []int
	require.True(t, l.Defer("10", func() { order = append(order, 1) }))
	require.True(t, l.Defer("10", func() { order = append(order, 2) }))

	replay := l.Unlock("10")
	require.False(t, l.IsLocked("10"))
	require.Len(t, replay, 2)
	for _, fn := range replay {
		fn()
	}
	require.Equal(t, []int{1, 2}, order)

	// A second unlock yields nothing to replay.
	require.Empty(t, l.Unlock("10"))
}
