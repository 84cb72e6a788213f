package state

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pkg.parley.chat/parley/internal/gateway"
)

func overrideFixture(t *testing.T) (*Builder, *Guild, *TextChannel) {
	t.Helper()
	b, store, _ := newTestBuilder()
	err := b.BuildGuildFirstPhase(guildSnapshot(1, memberPayload("1", "alpha", "11")), nil)
	require.NoError(t, err)
	return b, store.Guild("10"), store.TextChannel("100")
}

func TestBuildPermissionOverrideMember(t *testing.T) {
	b, g, ch := overrideFixture(t)

	o, err := b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "1", Type: "member", Allow: 8, Deny: 16})
	require.NoError(t, err)
	require.Equal(t, "1", o.MemberID())
	require.Empty(t, o.RoleID())
	require.EqualValues(t, 8, o.Allow())
	require.EqualValues(t, 16, o.Deny())

	// A later payload for the same target updates the same override in
	// place, overwriting both bitmasks.
	again, err := b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "1", Type: "member", Allow: 32})
	require.NoError(t, err)
	require.Same(t, o, again)
	require.EqualValues(t, 32, o.Allow())
	require.EqualValues(t, 0, o.Deny())
	require.Same(t, o, ch.MemberOverride("1"))
}

func TestBuildPermissionOverrideRole(t *testing.T) {
	b, g, ch := overrideFixture(t)

	o, err := b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "11", Type: "role", Deny: 4})
	require.NoError(t, err)
	require.Equal(t, "11", o.RoleID())
	require.Same(t, o, ch.RoleOverride("11"))
}

func TestBuildPermissionOverrideUnresolvedTarget(t *testing.T) {
	b, g, ch := overrideFixture(t)

	_, err := b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "404", Type: "member"})
	require.ErrorIs(t, err, ErrUnresolvedOverrideTarget)

	_, err = b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "404", Type: "role"})
	require.ErrorIs(t, err, ErrUnresolvedOverrideTarget)
}

func TestBuildPermissionOverrideUnknownType(t *testing.T) {
	b, g, ch := overrideFixture(t)

	_, err := b.BuildPermissionOverride(g, ch, &gateway.OverridePayload{ID: "1", Type: "squad"})
	require.ErrorIs(t, err, ErrUnknownOverrideType)
}
