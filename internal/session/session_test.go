package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pkg.parley.chat/parley/internal/config"
	"pkg.parley.chat/parley/internal/gateway"
	"pkg.parley.chat/parley/internal/state"
)

type sentOp struct {
	op   int
	data interface{}
}

type fakeConn struct {
	sends []sentOp
}

func (c *fakeConn) Send(op int, data interface{}) error {
	c.sends = append(c.sends, sentOp{op: op, data: data})
	return nil
}

func newTestSession(t *testing.T) (*Session, *fakeConn) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Platform.Auth = "Bot token"
	cfg.Platform.APIBase = "https://api.example.chat"
	cfg.Platform.AccountType = config.AccountBot

	conn := &fakeConn{}
	s, err := New(context.Background(), zap.NewNop(), cfg, conn, nil)
	require.NoError(t, err)
	return s, conn
}

func dispatch(s *Session, eventType, body string) {
	s.Dispatch(gateway.Event{Type: eventType, Data: []byte(body)})
}

func TestDispatchAdvancesUnavailableGuild(t *testing.T) {
	s, conn := newTestSession(t)

	var ready []*state.Guild
	s.OnGuildReady = func(g *state.Guild) { ready = append(ready, g) }

	dispatch(s, "GUILD_CREATE", `{"id":"10","unavailable":true}`)
	require.Len(t, ready, 1)
	require.False(t, ready[0].Available())
	require.Equal(t, state.BuildUnavailable, ready[0].BuildState())

	// The full snapshot for a guild parked unavailable runs immediately;
	// it is the event that advances the guild, not one to sit on.
	dispatch(s, "GUILD_CREATE", `{
		"id": "10", "name": "testing grounds", "owner_id": "1", "member_count": 1,
		"roles": [{"id": "10", "name": "@everyone"}],
		"members": [{"user": {"id": "1", "username": "alpha"}, "joined_at": "2016-05-01T12:00:00Z"}]
	}`)

	g := s.Store().Guild("10")
	require.True(t, g.Available())
	require.Equal(t, state.BuildComplete, g.BuildState())
	require.Len(t, ready, 2)
	require.Same(t, g, ready[1])
	require.Empty(t, conn.sends)
}

func TestDispatchDefersEventsForGuildAwaitingChunks(t *testing.T) {
	s, conn := newTestSession(t)

	var messages []*state.Message
	s.OnMessage = func(m *state.Message) { messages = append(messages, m) }
	var ready []*state.Guild
	s.OnGuildReady = func(g *state.Guild) { ready = append(ready, g) }

	dispatch(s, "GUILD_CREATE", `{
		"id": "10", "name": "testing grounds", "owner_id": "1", "member_count": 2,
		"roles": [{"id": "10", "name": "@everyone"}],
		"members": [{"user": {"id": "1", "username": "alpha"}, "joined_at": "2016-05-01T12:00:00Z"}],
		"channels": [{"id": "100", "type": 0, "name": "general"}]
	}`)

	g := s.Store().Guild("10")
	require.Equal(t, state.BuildAwaitingChunk, g.BuildState())
	require.Empty(t, ready)
	require.Len(t, conn.sends, 1)
	require.Equal(t, gateway.OpRequestGuildMembers, conn.sends[0].op)

	// A message from a member outside the inline subset waits for the
	// chunks instead of being dropped on the unresolved author.
	dispatch(s, "MESSAGE_CREATE", `{
		"id": "900", "channel_id": "100", "content": "hello",
		"author": {"id": "2", "username": "beta"},
		"timestamp": "2016-05-01T12:05:00Z"
	}`)
	require.Empty(t, messages)

	// So does a member/presence refresh for the same guild.
	dispatch(s, "GUILD_SYNC", `{"id": "10", "presences": [{"user": {"id": "1"}, "status": "idle"}]}`)
	require.Equal(t, state.StatusOffline, g.Member("1").Status())

	dispatch(s, "GUILD_MEMBERS_CHUNK", `{"guild_id": "10", "members": [
		{"user": {"id": "1", "username": "alpha"}, "joined_at": "2016-05-01T12:00:00Z"},
		{"user": {"id": "2", "username": "beta"}, "joined_at": "2016-05-01T12:01:00Z"}
	]}`)

	require.Equal(t, state.BuildComplete, g.BuildState())
	require.Len(t, ready, 1)
	require.Len(t, messages, 1)
	require.Equal(t, "2", messages[0].Author().ID())
	require.Equal(t, state.StatusIdle, g.Member("1").Status())
}

func TestDispatchDefersSnapshotForGuildAwaitingChunks(t *testing.T) {
	s, _ := newTestSession(t)

	snapshot := `{
		"id": "10", "name": "testing grounds", "owner_id": "1", "member_count": 2,
		"roles": [{"id": "10", "name": "@everyone"}],
		"members": [{"user": {"id": "1", "username": "alpha"}, "joined_at": "2016-05-01T12:00:00Z"}]
	}`
	dispatch(s, "GUILD_CREATE", snapshot)
	require.Equal(t, state.BuildAwaitingChunk, s.Store().Guild("10").BuildState())

	// A second snapshot mid-chunk is deferred, not rebuilt on top of the
	// in-progress guild.
	dispatch(s, "GUILD_CREATE", snapshot)
	require.Equal(t, state.BuildAwaitingChunk, s.Store().Guild("10").BuildState())
}

func TestRequestGuildMembersClientAccountSyncsFirst(t *testing.T) {
	s, conn := newTestSession(t)
	s.config.Platform.AccountType = config.AccountClient

	s.RequestGuildMembers("10", 5)

	require.Len(t, conn.sends, 2)
	require.Equal(t, gateway.OpGuildSync, conn.sends[0].op)
	require.Equal(t, gateway.OpRequestGuildMembers, conn.sends[1].op)
}
