package state

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"pkg.parley.chat/parley/internal/gateway"
)

var (
	// ErrGuildNotPending reports a member chunk delivered for a guild that
	// has no cached snapshot awaiting it. This indicates a bookkeeping bug
	// upstream and must not be swallowed.
	ErrGuildNotPending = errors.New("guild has no pending build")

	// ErrUnknownGuild reports an operation against a guild id the store has
	// never seen.
	ErrUnknownGuild = errors.New("unknown guild")
)

// ChunkRequester is the outbound collaborator the builder asks for the
// remaining members of a guild whose snapshot was incomplete. The expected
// total lets the collaborator decide when delivery is finished; how the
// members are fetched (chunked fetch vs. full sync) is the collaborator's
// account-type policy.
type ChunkRequester interface {
	RequestGuildMembers(guildID string, expected int)
}

// Builder converts raw event payloads into entity mutations against the
// Store. It owns the guild multi-phase construction protocol; one Builder
// belongs to one session and is never shared across sessions.
type Builder struct {
	logger  *zap.SugaredLogger
	store   *Store
	lock    *GuildLock
	pending *pendingCache
	chunker ChunkRequester
}

func NewBuilder(logger *zap.Logger, store *Store, lock *GuildLock, chunker ChunkRequester) *Builder {
	return &Builder{
		logger:  logger.Sugar(),
		store:   store,
		lock:    lock,
		pending: newPendingCache(),
		chunker: chunker,
	}
}

// BuildUser creates or refreshes the tracked user for the payload.
func (b *Builder) BuildUser(p *gateway.UserPayload) (*User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	u := b.store.getOrCreateUser(p.ID)
	b.fillUser(u, p)
	return u, nil
}

// buildFakeUser synthesizes a transient stand-in that the store's primary
// user map never tracks.
func (b *Builder) buildFakeUser(p *gateway.UserPayload) *User {
	u := &User{id: p.ID, fake: true}
	b.fillUser(u, p)
	return u
}

func (b *Builder) fillUser(u *User, p *gateway.UserPayload) {
	u.name = p.Username
	u.discriminator = p.Discriminator
	u.avatar = p.Avatar
	u.bot = p.Bot
}

// BuildRole creates or refreshes a role in the guild's role map.
func (b *Builder) BuildRole(g *Guild, p *gateway.RolePayload) *Role {
	r, ok := g.roles[p.ID]
	if !ok {
		r = &Role{id: p.ID, guildID: g.id}
		g.roles[p.ID] = r
	}
	r.name = p.Name
	r.position = p.Position
	r.permissions = p.Permissions
	r.color = p.Color
	r.hoisted = p.Hoist
	r.managed = p.Managed
	r.mentionable = p.Mentionable
	return r
}

// BuildMember creates or refreshes a member of the guild from any of the
// member sources (snapshot, chunk, sync). Role ids that do not resolve in
// the guild's role map are dropped with a diagnostic, never inserted as
// placeholders.
func (b *Builder) BuildMember(g *Guild, p *gateway.MemberPayload) (*Member, error) {
	u, err := b.BuildUser(&p.User)
	if err != nil {
		return nil, err
	}

	m, ok := g.members[u.id]
	if !ok {
		m = newMember(g.id, u)
		g.members[u.id] = m
	}

	m.voiceState.guildMuted = p.Mute
	m.voiceState.guildDeafened = p.Deaf
	m.nickname = p.Nick
	if p.JoinedAt != "" {
		t, err := time.Parse(time.RFC3339, p.JoinedAt)
		if err != nil {
			b.logger.Warnf("Couldn't parse join timestamp %q for member %s in guild %s.", p.JoinedAt, u.id, g.id)
		} else {
			m.joinedAt = t
		}
	}

	for _, roleID := range p.Roles {
		r, ok := g.roles[roleID]
		if !ok {
			b.logger.Errorf("Received member %s in guild %s with unknown role %s.", u.id, g.id, roleID)
			continue
		}
		m.roles[roleID] = r
	}

	return m, nil
}

// ApplyPresence refreshes a member's online status and activity. An absent
// game type falls back to the default type.
func (b *Builder) ApplyPresence(m *Member, p *gateway.PresencePayload) {
	m.status = OnlineStatus(p.Status)
	if p.Game == nil || p.Game.Name == "" {
		return
	}
	game := &Game{Name: p.Game.Name, URL: p.Game.URL, Type: GameTypeDefault}
	if p.Game.Type != nil {
		game.Type = GameType(*p.Game.Type)
	}
	m.game = game
}

// BuildTextChannel creates or refreshes a guild text channel, mirroring it
// in the store's global lookup map. Absent topics default to empty.
func (b *Builder) BuildTextChannel(g *Guild, p *gateway.ChannelPayload) *TextChannel {
	c := b.store.getOrCreateTextChannel(p.ID, g)
	c.name = p.Name
	c.topic = p.Topic
	c.position = p.Position
	return c
}

// BuildVoiceChannel creates or refreshes a guild voice channel.
func (b *Builder) BuildVoiceChannel(g *Guild, p *gateway.ChannelPayload) *VoiceChannel {
	c := b.store.getOrCreateVoiceChannel(p.ID, g)
	c.name = p.Name
	c.position = p.Position
	c.bitrate = p.Bitrate
	c.userLimit = p.UserLimit
	return c
}

// BuildPrivateChannel creates a direct-message channel. The platform can
// hand out private channels whose recipient this session can no longer
// see; those get a fake recipient and live in the fake channel map.
func (b *Builder) BuildPrivateChannel(p *gateway.PrivateChannelPayload) (*PrivateChannel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	recipient := &p.Recipients[0]
	u := b.store.User(recipient.ID)
	if u == nil {
		u = b.buildFakeUser(recipient)
		b.store.putFakeUser(u)
	}

	priv := &PrivateChannel{id: p.ID, recipient: u, fake: u.fake}
	b.store.putPrivateChannel(priv)
	return priv, nil
}

// BuildGuildFirstPhase reconciles a guild snapshot into the store. For
// small guilds whose inline member list is complete this finishes the guild
// in one call; for larger guilds it caches the snapshot, locks the guild
// and requests the remaining members out-of-band. The callback fires with
// the finished guild once construction completes (immediately for
// unavailable guilds, which stay locked).
func (b *Builder) BuildGuildFirstPhase(p *gateway.GuildPayload, callback func(*Guild)) error {
	if err := p.Validate(); err != nil {
		return err
	}

	g := b.store.getOrCreateGuild(p.ID)
	if p.Unavailable {
		g.available = false
		g.buildState = BuildUnavailable
		if callback != nil {
			callback(g)
		}
		b.lock.Lock(p.ID)
		return nil
	}

	g.available = true
	g.name = p.Name
	g.region = p.Region
	g.icon = p.Icon
	g.afkTimeout = p.AFKTimeout
	g.afkChannelID = p.AFKChannelID
	g.verificationLevel = p.VerificationLevel
	g.memberCount = p.MemberCount
	g.ownerID = p.OwnerID
	g.buildState = BuildPartial

	for i := range p.Roles {
		r := b.BuildRole(g, &p.Roles[i])
		if r.id == g.id {
			g.publicRole = r
		}
	}

	if err := b.buildMemberPass(g, p.Members); err != nil {
		return err
	}

	// Best effort; for some account types the owner only becomes
	// resolvable after the member chunks or a guild sync.
	if owner := g.members[p.OwnerID]; owner != nil {
		g.owner = owner
	}

	b.applyPresencePass(g, p.Presences, "guild first phase")

	for i := range p.Channels {
		cp := &p.Channels[i]
		switch cp.Type {
		case gateway.ChannelTypeText:
			b.BuildTextChannel(g, cp)
		case gateway.ChannelTypeVoice:
			b.BuildVoiceChannel(g, cp)
		default:
			b.logger.Errorf("Received channel %s of unrecognized type %d for guild %s, skipping.", cp.ID, cp.Type, g.id)
		}
	}

	// An inline member list short of the authoritative count means the rest
	// of the members arrive out-of-band. Everything that references members
	// (permission overrides, voice states) waits for them; until then the
	// guild stays locked away from consumers.
	if len(p.Members) != p.MemberCount {
		b.pending.Put(p.ID, p, callback)
		b.lock.Lock(p.ID)
		g.buildState = BuildAwaitingChunk
		b.chunker.RequestGuildMembers(p.ID, p.MemberCount)
		return nil
	}

	if err := b.applyChannelOverrides(g, p.Channels); err != nil {
		return err
	}
	b.applyVoiceStates(g, p.VoiceStates)
	g.buildState = BuildComplete

	replay := b.lock.Unlock(g.id)
	if callback != nil {
		callback(g)
	}
	for _, fn := range replay {
		fn()
	}
	return nil
}

// BuildGuildMemberChunks finishes a guild whose snapshot was short of
// members, consuming the cached snapshot exactly once. A chunk for a guild
// that is not mid-build is an internal consistency failure, as is a cached
// snapshot carrying no completion callback.
func (b *Builder) BuildGuildMemberChunks(guildID string, chunks [][]gateway.MemberPayload) error {
	payload, callback, ok := b.pending.Take(guildID)
	if !ok {
		return fmt.Errorf("member chunks for guild %s: %w: no cached snapshot", guildID, ErrGuildNotPending)
	}
	if callback == nil {
		return fmt.Errorf("member chunks for guild %s: %w: cached snapshot has no completion callback", guildID, ErrGuildNotPending)
	}

	g := b.store.Guild(guildID)
	if g == nil {
		return fmt.Errorf("member chunks for guild %s: %w: guild not in store", guildID, ErrGuildNotPending)
	}

	for _, chunk := range chunks {
		if err := b.buildMemberPass(g, chunk); err != nil {
			return err
		}
	}

	if owner := g.members[payload.OwnerID]; owner != nil {
		g.owner = owner
	} else {
		b.logger.Errorf("Never resolved the owner %s of guild %s after member chunks.", payload.OwnerID, guildID)
	}

	if err := b.applyChannelOverrides(g, payload.Channels); err != nil {
		return err
	}
	b.applyVoiceStates(g, payload.VoiceStates)
	g.buildState = BuildComplete

	callback(g)
	for _, fn := range b.lock.Unlock(guildID) {
		fn()
	}
	return nil
}

// ApplyGuildSync re-applies members and presences to a guild that already
// exists and is structurally complete. It bypasses the lock and pending
// cache machinery entirely.
func (b *Builder) ApplyGuildSync(guildID string, members []gateway.MemberPayload, presences []gateway.PresencePayload) error {
	g := b.store.Guild(guildID)
	if g == nil {
		return fmt.Errorf("sync for guild %s: %w", guildID, ErrUnknownGuild)
	}

	if err := b.buildMemberPass(g, members); err != nil {
		return err
	}
	b.applyPresencePass(g, presences, "guild sync")
	return nil
}

func (b *Builder) buildMemberPass(g *Guild, members []gateway.MemberPayload) error {
	for i := range members {
		if _, err := b.BuildMember(g, &members[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) applyPresencePass(g *Guild, presences []gateway.PresencePayload, phase string) {
	for i := range presences {
		p := &presences[i]
		m := g.members[p.User.ID]
		if m == nil {
			b.logger.Errorf("Received a presence for non-existent member %s in guild %s during %s.", p.User.ID, g.id, phase)
			continue
		}
		b.ApplyPresence(m, p)
	}
}

// applyChannelOverrides attaches permission overrides once all referenced
// members exist. Per-item resolution failures are logged and skipped; an
// override batch for a channel the first phase never created is a build
// failure.
func (b *Builder) applyChannelOverrides(g *Guild, channels []gateway.ChannelPayload) error {
	for i := range channels {
		cp := &channels[i]
		var ch OverridableChannel
		switch cp.Type {
		case gateway.ChannelTypeText:
			if c := b.store.TextChannel(cp.ID); c != nil {
				ch = c
			}
		case gateway.ChannelTypeVoice:
			if c := b.store.VoiceChannel(cp.ID); c != nil {
				ch = c
			}
		default:
			b.logger.Errorf("Skipping overrides for channel %s of unrecognized type %d in guild %s.", cp.ID, cp.Type, g.id)
			continue
		}
		if ch == nil {
			return fmt.Errorf("got permission overrides for unknown channel %s in guild %s", cp.ID, g.id)
		}

		for j := range cp.PermissionOverwrites {
			if _, err := b.BuildPermissionOverride(g, ch, &cp.PermissionOverwrites[j]); err != nil {
				if errors.Is(err, ErrUnresolvedOverrideTarget) {
					b.logger.Warnf("Ignoring permission override in channel %s: %s.", cp.ID, err)
					continue
				}
				return err
			}
		}
	}
	return nil
}

// applyVoiceStates mirrors connected members into their voice channels and
// refreshes each member's voice flags. States referencing unknown members
// or channels are logged anomalies.
func (b *Builder) applyVoiceStates(g *Guild, states []gateway.VoiceStatePayload) {
	for i := range states {
		vs := &states[i]
		m := g.members[vs.UserID]
		if m == nil {
			b.logger.Errorf("Received a voice state for unknown member %s in guild %s.", vs.UserID, g.id)
			continue
		}

		vc := g.voiceChannels[vs.ChannelID]
		if vc == nil {
			b.logger.Errorf("Received a voice state for unknown voice channel %s in guild %s.", vs.ChannelID, g.id)
			continue
		}
		vc.connectedMembers[vs.UserID] = m

		m.voiceState.selfMuted = vs.SelfMute
		m.voiceState.selfDeafened = vs.SelfDeaf
		m.voiceState.guildMuted = vs.Mute
		m.voiceState.guildDeafened = vs.Deaf
		m.voiceState.suppressed = vs.Suppress
		m.voiceState.sessionID = vs.SessionID
		m.voiceState.channelID = vs.ChannelID
	}
}

// Lock exposes the guild build coordinator so the dispatch layer can defer
// events for guilds that are mid-construction.
func (b *Builder) Lock() *GuildLock { return b.lock }

// ClearPending drops all cached snapshots and callbacks, used when the
// session's gateway connection is torn down and a fresh snapshot burst is
// expected.
func (b *Builder) ClearPending() { b.pending.Clear() }
