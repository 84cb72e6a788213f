package state

import (
	"time"
)

// OnlineStatus is a member's presence status as reported by the platform.
type OnlineStatus string

const (
	StatusOnline       OnlineStatus = "online"
	StatusIdle         OnlineStatus = "idle"
	StatusDoNotDisturb OnlineStatus = "dnd"
	StatusOffline      OnlineStatus = "offline"
)

// GameType discriminates the kind of activity attached to a presence.
type GameType int

// GameTypeDefault is the fallback for presences that omit an activity type.
const (
	GameTypeDefault GameType = iota
	GameTypeStreaming
)

// Game is the activity a member's presence advertises.
type Game struct {
	Name string
	URL  string
	Type GameType
}

// Member is a user's membership in one guild. It back-references its guild
// by id only; the owning guild is resolved through the Store on demand.
type Member struct {
	guildID    string
	user       *User
	nickname   string
	joinedAt   time.Time
	roles      map[string]*Role
	voiceState *VoiceState
	status     OnlineStatus
	game       *Game
}

func newMember(guildID string, user *User) *Member {
	return &Member{
		guildID:    guildID,
		user:       user,
		roles:      make(map[string]*Role),
		voiceState: &VoiceState{},
		status:     StatusOffline,
	}
}

func (m *Member) GuildID() string         { return m.guildID }
func (m *Member) User() *User             { return m.user }
func (m *Member) Nickname() string        { return m.nickname }
func (m *Member) JoinedAt() time.Time     { return m.joinedAt }
func (m *Member) VoiceState() *VoiceState { return m.voiceState }
func (m *Member) Status() OnlineStatus    { return m.status }
func (m *Member) Game() *Game             { return m.game }
func (m *Member) HasRole(id string) bool  { _, ok := m.roles[id]; return ok }

// Roles returns the member's resolved role set. Unresolvable role ids are
// never inserted as placeholders, so every returned role exists in the
// owning guild's role map.
func (m *Member) Roles() []*Role {
	rs := make([]*Role, 0, len(m.roles))
	for _, r := range m.roles {
		rs = append(rs, r)
	}
	return rs
}
