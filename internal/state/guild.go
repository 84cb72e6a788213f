package state

// BuildState tracks how far a guild has progressed through the multi-phase
// construction protocol. A guild is queryable by external consumers only
// once it reaches BuildComplete.
type BuildState int8

const (
	BuildUnavailable BuildState = iota
	BuildPartial
	BuildAwaitingChunk
	BuildComplete
)

func (s BuildState) String() string {
	switch s {
	case BuildUnavailable:
		return "unavailable"
	case BuildPartial:
		return "partial"
	case BuildAwaitingChunk:
		return "awaiting-chunk"
	case BuildComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Guild owns its role, member and channel collections exclusively. It is
// created on the first event referencing its id and filled in across build
// phases.
type Guild struct {
	id                string
	name              string
	region            string
	icon              string
	afkChannelID      string
	afkTimeout        int
	verificationLevel int
	available         bool
	memberCount       int
	buildState        BuildState

	ownerID    string
	owner      *Member
	publicRole *Role

	roles         map[string]*Role
	members       map[string]*Member
	textChannels  map[string]*TextChannel
	voiceChannels map[string]*VoiceChannel
}

func newGuild(id string) *Guild {
	return &Guild{
		id:            id,
		roles:         make(map[string]*Role),
		members:       make(map[string]*Member),
		textChannels:  make(map[string]*TextChannel),
		voiceChannels: make(map[string]*VoiceChannel),
	}
}

func (g *Guild) ID() string             { return g.id }
func (g *Guild) Name() string           { return g.name }
func (g *Guild) Region() string         { return g.region }
func (g *Guild) Icon() string           { return g.icon }
func (g *Guild) AFKTimeout() int        { return g.afkTimeout }
func (g *Guild) VerificationLevel() int { return g.verificationLevel }
func (g *Guild) Available() bool        { return g.available }
func (g *Guild) BuildState() BuildState { return g.buildState }

// MemberCount is the authoritative member total from the guild's snapshot,
// which may exceed the number of members currently resolved.
func (g *Guild) MemberCount() int { return g.memberCount }

// Owner returns the owning member, or nil when the owner reference could
// not be resolved yet.
func (g *Guild) Owner() *Member { return g.owner }

// PublicRole is the guild's everyone role, whose id equals the guild id.
func (g *Guild) PublicRole() *Role { return g.publicRole }

// AFKChannel resolves the voice channel idle members are moved to, or nil
// when the guild has none configured.
func (g *Guild) AFKChannel() *VoiceChannel { return g.voiceChannels[g.afkChannelID] }

func (g *Guild) Role(id string) *Role                 { return g.roles[id] }
func (g *Guild) Member(userID string) *Member         { return g.members[userID] }
func (g *Guild) TextChannel(id string) *TextChannel   { return g.textChannels[id] }
func (g *Guild) VoiceChannel(id string) *VoiceChannel { return g.voiceChannels[id] }

func (g *Guild) NumMembers() int { return len(g.members) }

func (g *Guild) Members() []*Member {
	ms := make([]*Member, 0, len(g.members))
	for _, m := range g.members {
		ms = append(ms, m)
	}
	return ms
}

func (g *Guild) TextChannels() []*TextChannel {
	cs := make([]*TextChannel, 0, len(g.textChannels))
	for _, c := range g.textChannels {
		cs = append(cs, c)
	}
	return cs
}

func (g *Guild) VoiceChannels() []*VoiceChannel {
	cs := make([]*VoiceChannel, 0, len(g.voiceChannels))
	for _, c := range g.voiceChannels {
		cs = append(cs, c)
	}
	return cs
}
