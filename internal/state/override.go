package state

import (
	"errors"
	"fmt"

	"pkg.parley.chat/parley/internal/gateway"
)

var (
	// ErrUnknownOverrideType reports an override payload whose type string
	// is neither "member" nor "role"; the input is unusable.
	ErrUnknownOverrideType = errors.New("unknown permission override type")

	// ErrUnresolvedOverrideTarget reports an override whose member or role
	// id does not resolve in the guild. Recoverable per item: callers log
	// and skip.
	ErrUnresolvedOverrideTarget = errors.New("unresolved permission override target")
)

// OverridableChannel is the subset of text and voice channels the override
// assembly works against. Only channel types of this package satisfy it.
type OverridableChannel interface {
	ID() string
	GuildID() string
	memberOverrideMap() map[string]*PermissionOverride
	roleOverrideMap() map[string]*PermissionOverride
}

func (c *TextChannel) memberOverrideMap() map[string]*PermissionOverride { return c.memberOverrides }
func (c *TextChannel) roleOverrideMap() map[string]*PermissionOverride   { return c.roleOverrides }

func (c *VoiceChannel) memberOverrideMap() map[string]*PermissionOverride { return c.memberOverrides }
func (c *VoiceChannel) roleOverrideMap() map[string]*PermissionOverride   { return c.roleOverrides }

// BuildPermissionOverride resolves the override's target against the guild
// and creates or refreshes the override in the channel's matching map,
// overwriting any previous bitmasks.
func (b *Builder) BuildPermissionOverride(g *Guild, ch OverridableChannel, p *gateway.OverridePayload) (*PermissionOverride, error) {
	var o *PermissionOverride
	switch p.Type {
	case "member":
		if g.members[p.ID] == nil {
			return nil, fmt.Errorf("%w: member %s in guild %s", ErrUnresolvedOverrideTarget, p.ID, g.id)
		}
		o = ch.memberOverrideMap()[p.ID]
		if o == nil {
			o = &PermissionOverride{memberID: p.ID}
			ch.memberOverrideMap()[p.ID] = o
		}
	case "role":
		if g.roles[p.ID] == nil {
			return nil, fmt.Errorf("%w: role %s in guild %s", ErrUnresolvedOverrideTarget, p.ID, g.id)
		}
		o = ch.roleOverrideMap()[p.ID]
		if o == nil {
			o = &PermissionOverride{roleID: p.ID}
			ch.roleOverrideMap()[p.ID] = o
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOverrideType, p.Type)
	}

	o.allow = p.Allow
	o.deny = p.Deny
	return o, nil
}
