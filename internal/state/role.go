package state

// Role is a guild role, owned by its guild's role map.
type Role struct {
	id          string
	guildID     string
	name        string
	position    int
	permissions int64
	color       int
	hoisted     bool
	managed     bool
	mentionable bool
}

func (r *Role) ID() string         { return r.id }
func (r *Role) GuildID() string    { return r.guildID }
func (r *Role) Name() string       { return r.name }
func (r *Role) Position() int      { return r.position }
func (r *Role) Permissions() int64 { return r.permissions }
func (r *Role) Color() int         { return r.color }
func (r *Role) Hoisted() bool      { return r.hoisted }
func (r *Role) Managed() bool      { return r.managed }
func (r *Role) Mentionable() bool  { return r.mentionable }
