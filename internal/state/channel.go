package state

// PermissionOverride is a per-channel allow/deny permission bitmask pair
// scoped to one member or one role, layered over role-level defaults.
// Exactly one of MemberID or RoleID is set.
type PermissionOverride struct {
	memberID string
	roleID   string
	allow    int64
	deny     int64
}

func (o *PermissionOverride) MemberID() string { return o.memberID }
func (o *PermissionOverride) RoleID() string   { return o.roleID }
func (o *PermissionOverride) Allow() int64     { return o.allow }
func (o *PermissionOverride) Deny() int64      { return o.deny }

// TextChannel is a guild text channel. Overrides are keyed by the target
// member's user id or the target role's id.
type TextChannel struct {
	id              string
	guildID         string
	name            string
	topic           string
	position        int
	memberOverrides map[string]*PermissionOverride
	roleOverrides   map[string]*PermissionOverride
}

func newTextChannel(id, guildID string) *TextChannel {
	return &TextChannel{
		id:              id,
		guildID:         guildID,
		memberOverrides: make(map[string]*PermissionOverride),
		roleOverrides:   make(map[string]*PermissionOverride),
	}
}

func (c *TextChannel) ID() string      { return c.id }
func (c *TextChannel) GuildID() string { return c.guildID }
func (c *TextChannel) Name() string    { return c.name }
func (c *TextChannel) Topic() string   { return c.topic }
func (c *TextChannel) Position() int   { return c.position }

func (c *TextChannel) MemberOverride(userID string) *PermissionOverride {
	return c.memberOverrides[userID]
}

func (c *TextChannel) RoleOverride(roleID string) *PermissionOverride {
	return c.roleOverrides[roleID]
}

// VoiceChannel is a guild voice channel.
type VoiceChannel struct {
	id               string
	guildID          string
	name             string
	position         int
	bitrate          int
	userLimit        int
	memberOverrides  map[string]*PermissionOverride
	roleOverrides    map[string]*PermissionOverride
	connectedMembers map[string]*Member
}

func newVoiceChannel(id, guildID string) *VoiceChannel {
	return &VoiceChannel{
		id:               id,
		guildID:          guildID,
		memberOverrides:  make(map[string]*PermissionOverride),
		roleOverrides:    make(map[string]*PermissionOverride),
		connectedMembers: make(map[string]*Member),
	}
}

func (c *VoiceChannel) ID() string      { return c.id }
func (c *VoiceChannel) GuildID() string { return c.guildID }
func (c *VoiceChannel) Name() string    { return c.name }
func (c *VoiceChannel) Position() int   { return c.position }
func (c *VoiceChannel) Bitrate() int    { return c.bitrate }
func (c *VoiceChannel) UserLimit() int  { return c.userLimit }

func (c *VoiceChannel) MemberOverride(userID string) *PermissionOverride {
	return c.memberOverrides[userID]
}

func (c *VoiceChannel) RoleOverride(roleID string) *PermissionOverride {
	return c.roleOverrides[roleID]
}

// ConnectedMember returns the connected member with the given user id, if
// any.
func (c *VoiceChannel) ConnectedMember(userID string) *Member {
	return c.connectedMembers[userID]
}

// PrivateChannel is a direct-message channel with one recipient. Fake
// instances are synthesized when the recipient cannot be resolved.
type PrivateChannel struct {
	id        string
	recipient *User
	fake      bool
}

func (c *PrivateChannel) ID() string       { return c.id }
func (c *PrivateChannel) Recipient() *User { return c.recipient }
func (c *PrivateChannel) Fake() bool       { return c.fake }
