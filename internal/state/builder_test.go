package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pkg.parley.chat/parley/internal/gateway"
)

type chunkRequest struct {
	guildID  string
	expected int
}

type fakeChunker struct {
	requests []chunkRequest
}

func (f *fakeChunker) RequestGuildMembers(guildID string, expected int) {
	f.requests = append(f.requests, chunkRequest{guildID: guildID, expected: expected})
}

func newTestBuilder() (*Builder, *Store, *fakeChunker) {
	store := NewStore()
	chunker := &fakeChunker{}
	b := NewBuilder(zap.NewNop(), store, NewGuildLock(), chunker)
	return b, store, chunker
}

func memberPayload(userID, name string, roles ...string) gateway.MemberPayload {
	return gateway.MemberPayload{
		User:     gateway.UserPayload{ID: userID, Username: name, Discriminator: "0001"},
		JoinedAt: "2016-05-01T12:00:00Z",
		Roles:    roles,
	}
}

// guildSnapshot builds a snapshot for guild 10 owned by user 1, with one
// text channel 100 (overrides for member 1 and role 11), one voice channel
// 200 (also the AFK channel) and a voice state connecting user 1 to it.
func guildSnapshot(memberCount int, members ...gateway.MemberPayload) *gateway.GuildPayload {
	return &gateway.GuildPayload{
		ID:                "10",
		Name:              "testing grounds",
		Region:            "eu-west",
		OwnerID:           "1",
		AFKChannelID:      "200",
		VerificationLevel: 2,
		MemberCount:       memberCount,
		Members:           members,
		Roles: []gateway.RolePayload{
			{ID: "10", Name: "@everyone", Permissions: 104324161},
			{ID: "11", Name: "mods", Position: 1, Permissions: 268435456},
		},
		Presences: []gateway.PresencePayload{
			{User: gateway.UserPayload{ID: "1"}, Status: "online"},
			{User: gateway.UserPayload{ID: "404"}, Status: "idle"}, // unknown member, skipped
		},
		Channels: []gateway.ChannelPayload{
			{
				ID: "100", Type: gateway.ChannelTypeText, Name: "general", Topic: "chatter",
				PermissionOverwrites: []gateway.OverridePayload{
					{ID: "1", Type: "member", Allow: 1024, Deny: 0},
					{ID: "11", Type: "role", Allow: 0, Deny: 2048},
				},
			},
			{ID: "200", Type: gateway.ChannelTypeVoice, Name: "voice", Bitrate: 64000},
			{ID: "300", Type: 4, Name: "category"}, // unrecognized, skipped
		},
		VoiceStates: []gateway.VoiceStatePayload{
			{UserID: "1", ChannelID: "200", SessionID: "sess-1", SelfMute: true},
		},
	}
}

func TestBuildGuildSinglePhase(t *testing.T) {
	b, store, chunker := newTestBuilder()

	var built []*Guild
	err := b.BuildGuildFirstPhase(
		guildSnapshot(2, memberPayload("1", "alpha", "11"), memberPayload("2", "beta")),
		func(g *Guild) { built = append(built, g) },
	)
	require.NoError(t, err)
	require.Len(t, built, 1)
	require.Empty(t, chunker.requests)

	g := store.Guild("10")
	require.NotNil(t, g)
	require.Equal(t, BuildComplete, g.BuildState())
	require.True(t, g.Available())
	require.Equal(t, "testing grounds", g.Name())
	require.Equal(t, 2, g.NumMembers())
	require.False(t, b.Lock().IsLocked("10"))

	require.NotNil(t, g.PublicRole())
	require.Equal(t, "10", g.PublicRole().ID())

	owner := g.Owner()
	require.NotNil(t, owner)
	require.Equal(t, "1", owner.User().ID())
	require.True(t, owner.HasRole("11"))
	require.Equal(t, StatusOnline, owner.Status())

	// Overrides and voice state attach in the same call for a complete
	// inline member list.
	tc := store.TextChannel("100")
	require.NotNil(t, tc)
	require.NotNil(t, tc.MemberOverride("1"))
	require.EqualValues(t, 1024, tc.MemberOverride("1").Allow())
	require.NotNil(t, tc.RoleOverride("11"))
	require.EqualValues(t, 2048, tc.RoleOverride("11").Deny())

	vc := store.VoiceChannel("200")
	require.NotNil(t, vc)
	require.Same(t, vc, g.AFKChannel())
	require.Equal(t, owner, vc.ConnectedMember("1"))
	require.Equal(t, "200", owner.VoiceState().ChannelID())
	require.True(t, owner.VoiceState().SelfMuted())
	require.Equal(t, "sess-1", owner.VoiceState().SessionID())
}

func TestBuildGuildAwaitsMemberChunk(t *testing.T) {
	b, store, chunker := newTestBuilder()

	var built []*Guild
	err := b.BuildGuildFirstPhase(
		guildSnapshot(2, memberPayload("1", "alpha", "11")),
		func(g *Guild) { built = append(built, g) },
	)
	require.NoError(t, err)

	// Mid-build: locked, no callback, overrides not yet attached.
	require.Empty(t, built)
	require.True(t, b.Lock().IsLocked("10"))
	require.Equal(t, []chunkRequest{{guildID: "10", expected: 2}}, chunker.requests)

	g := store.Guild("10")
	require.Equal(t, BuildAwaitingChunk, g.BuildState())
	require.Nil(t, store.TextChannel("100").MemberOverride("1"))

	err = b.BuildGuildMemberChunks("10", [][]gateway.MemberPayload{
		{memberPayload("1", "alpha", "11"), memberPayload("2", "beta")},
	})
	require.NoError(t, err)

	require.Len(t, built, 1)
	require.Equal(t, BuildComplete, g.BuildState())
	require.Equal(t, g.MemberCount(), g.NumMembers())
	require.False(t, b.Lock().IsLocked("10"))
	require.NotNil(t, store.TextChannel("100").MemberOverride("1"))
	require.NotNil(t, g.Owner())
}

func TestBuildGuildChunkReplaysDeferredEvents(t *testing.T) {
	b, _, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(guildSnapshot(2, memberPayload("1", "alpha")), func(*Guild) {}))

	var replayed bool
	require.True(t, b.Lock().Defer("10", func() { replayed = true }))
	require.False(t, replayed)

	err := b.BuildGuildMemberChunks("10", [][]gateway.MemberPayload{
		{memberPayload("1", "alpha"), memberPayload("2", "beta")},
	})
	require.NoError(t, err)
	require.True(t, replayed)
}

func TestBuildGuildChunkWithoutPendingBuild(t *testing.T) {
	b, _, _ := newTestBuilder()

	err := b.BuildGuildMemberChunks("999", [][]gateway.MemberPayload{{memberPayload("1", "alpha")}})
	require.ErrorIs(t, err, ErrGuildNotPending)
}

func TestBuildGuildChunkConsumedOnce(t *testing.T) {
	b, _, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(guildSnapshot(2, memberPayload("1", "alpha")), func(*Guild) {}))

	chunks := [][]gateway.MemberPayload{{memberPayload("1", "alpha"), memberPayload("2", "beta")}}
	require.NoError(t, b.BuildGuildMemberChunks("10", chunks))
	require.ErrorIs(t, b.BuildGuildMemberChunks("10", chunks), ErrGuildNotPending)
}

func TestBuildGuildChunkRequiresCallback(t *testing.T) {
	b, store, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(guildSnapshot(2, memberPayload("1", "alpha")), nil))
	require.Equal(t, BuildAwaitingChunk, store.Guild("10").BuildState())

	// A snapshot cached without its completion callback cannot announce the
	// finished guild to anyone; finishing it anyway would hide the bug.
	err := b.BuildGuildMemberChunks("10", [][]gateway.MemberPayload{
		{memberPayload("1", "alpha"), memberPayload("2", "beta")},
	})
	require.ErrorIs(t, err, ErrGuildNotPending)
}

func TestBuildGuildUnavailable(t *testing.T) {
	b, store, chunker := newTestBuilder()

	var built []*Guild
	err := b.BuildGuildFirstPhase(
		&gateway.GuildPayload{ID: "10", Unavailable: true},
		func(g *Guild) { built = append(built, g) },
	)
	require.NoError(t, err)

	require.Len(t, built, 1)
	require.False(t, built[0].Available())
	require.Equal(t, BuildUnavailable, built[0].BuildState())
	require.True(t, b.Lock().IsLocked("10"))
	require.Empty(t, chunker.requests)

	require.Same(t, built[0], store.Guild("10"))
}

func TestBuildMemberDropsUnknownRoles(t *testing.T) {
	b, store, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(
		guildSnapshot(1, memberPayload("1", "alpha", "11", "666")), nil,
	))

	m := store.Guild("10").Member("1")
	require.NotNil(t, m)
	require.True(t, m.HasRole("11"))
	require.False(t, m.HasRole("666"))
	require.Len(t, m.Roles(), 1)
}

func TestBuildGuildRejectsMissingID(t *testing.T) {
	b, _, _ := newTestBuilder()

	err := b.BuildGuildFirstPhase(&gateway.GuildPayload{Name: "nameless"}, nil)
	require.ErrorIs(t, err, gateway.ErrMissingField)
}

func TestApplyGuildSync(t *testing.T) {
	b, store, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(guildSnapshot(1, memberPayload("1", "alpha")), nil))

	gameType := 1
	err := b.ApplyGuildSync("10",
		[]gateway.MemberPayload{memberPayload("2", "beta", "11")},
		[]gateway.PresencePayload{
			{User: gateway.UserPayload{ID: "2"}, Status: "dnd", Game: &gateway.GamePayload{Name: "chess", Type: &gameType}},
		},
	)
	require.NoError(t, err)

	g := store.Guild("10")
	require.Equal(t, 2, g.NumMembers())
	m := g.Member("2")
	require.Equal(t, StatusDoNotDisturb, m.Status())
	require.NotNil(t, m.Game())
	require.Equal(t, "chess", m.Game().Name)
	require.Equal(t, GameTypeStreaming, m.Game().Type)

	// The sync path never touches lock or pending state.
	require.False(t, b.Lock().IsLocked("10"))
	require.ErrorIs(t, b.BuildGuildMemberChunks("10", nil), ErrGuildNotPending)
}

func TestApplyGuildSyncUnknownGuild(t *testing.T) {
	b, _, _ := newTestBuilder()

	err := b.ApplyGuildSync("404", nil, nil)
	require.True(t, errors.Is(err, ErrUnknownGuild))
}

func TestApplyPresenceDefaultsGameType(t *testing.T) {
	b, store, _ := newTestBuilder()

	require.NoError(t, b.BuildGuildFirstPhase(guildSnapshot(1, memberPayload("1", "alpha")), nil))
	m := store.Guild("10").Member("1")

	b.ApplyPresence(m, &gateway.PresencePayload{
		User:   gateway.UserPayload{ID: "1"},
		Status: "idle",
		Game:   &gateway.GamePayload{Name: "solitaire"},
	})
	require.Equal(t, StatusIdle, m.Status())
	require.Equal(t, GameTypeDefault, m.Game().Type)
}
