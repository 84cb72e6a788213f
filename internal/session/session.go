package session

import (
	"context"
	"net/url"

	"go.uber.org/zap"
	"pkg.parley.chat/parley/internal/config"
	"pkg.parley.chat/parley/internal/gateway"
	"pkg.parley.chat/parley/internal/rest"
	"pkg.parley.chat/parley/internal/state"
)

// Session owns the entity store, the builder and the request executor for
// one gateway connection. The builder is threaded through the session
// explicitly; there is no process-wide builder registry.
type Session struct {
	ctx    context.Context
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	config *config.Config

	store    *state.Store
	builder  *state.Builder
	executor *rest.Executor
	conn     gateway.Conn

	chunks *chunkAccumulator

	// OnGuildReady fires once per guild when its build completes (or when
	// it arrives unavailable). OnMessage fires per assembled message.
	OnGuildReady func(*state.Guild)
	OnMessage    func(*state.Message)
}

func New(ctx context.Context, logger *zap.Logger, cfg *config.Config, conn gateway.Conn, transport rest.Transport) (*Session, error) {
	base, err := url.Parse(cfg.Platform.APIBase)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ctx:    ctx,
		logger: logger,
		sugar:  logger.Sugar(),
		config: cfg,
		conn:   conn,
		chunks: newChunkAccumulator(),
	}

	s.store = state.NewStore()
	s.builder = state.NewBuilder(logger, s.store, state.NewGuildLock(), s)

	registry := rest.NewRegistry(logger)
	s.executor = rest.NewExecutor(logger, transport, registry, rest.Config{
		Token:      cfg.Platform.Auth,
		APIHost:    base.Host,
		RetryDelay: cfg.Rest.RetryDelay,
	})
	return s, nil
}

// Store exposes read-only entity lookups.
func (s *Session) Store() *state.Store { return s.store }

// Rest exposes the rate-limited request executor.
func (s *Session) Rest() *rest.Executor { return s.executor }

// RequestGuildMembers implements the builder's chunk-request collaborator.
// Client accounts additionally request a full presence sync, since member
// chunks carry no presence data for them.
func (s *Session) RequestGuildMembers(guildID string, expected int) {
	s.chunks.expect(guildID, expected)

	if s.config.Platform.AccountType == config.AccountClient {
		if err := s.conn.Send(gateway.OpGuildSync, map[string]interface{}{"guild_id": guildID}); err != nil {
			s.sugar.Errorf("Couldn't request guild sync for %s: %s.", guildID, err)
		}
	}
	err := s.conn.Send(gateway.OpRequestGuildMembers, map[string]interface{}{
		"guild_id": guildID,
		"query":    "",
		"limit":    0,
	})
	if err != nil {
		s.sugar.Errorf("Couldn't request member chunks for %s: %s.", guildID, err)
	}
}

// Dispatch routes one decoded gateway event into the entity layer. Events
// for guilds that are mid-build are deferred and replayed after unlock.
func (s *Session) Dispatch(ev gateway.Event) {
	switch ev.Type {
	case "GUILD_CREATE":
		s.handleGuildCreate(ev.Data)
	case "GUILD_MEMBERS_CHUNK":
		s.handleMemberChunk(ev.Data)
	case "GUILD_SYNC":
		s.handleGuildSync(ev.Data)
	case "MESSAGE_CREATE":
		s.handleMessageCreate(ev.Data)
	default:
		s.sugar.Debugf("Ignoring unhandled event %s.", ev.Type)
	}
}

func (s *Session) handleGuildCreate(data []byte) {
	var p gateway.GuildPayload
	if err := gateway.Decode(data, &p); err != nil {
		s.sugar.Errorf("Couldn't decode guild snapshot: %s.", err)
		return
	}

	// A snapshot is only deferred while the guild is mid-chunk. A guild
	// parked unavailable is advanced by exactly this event, so its snapshot
	// must run immediately even though the id is locked.
	if g := s.store.Guild(p.ID); g != nil && g.BuildState() == state.BuildAwaitingChunk {
		if s.builder.Lock().Defer(p.ID, func() { s.buildGuild(&p) }) {
			s.sugar.Debugf("Deferred snapshot for guild %s awaiting chunks.", p.ID)
			return
		}
	}
	s.buildGuild(&p)
}

func (s *Session) buildGuild(p *gateway.GuildPayload) {
	if err := s.builder.BuildGuildFirstPhase(p, s.guildReady); err != nil {
		s.sugar.Errorf("Couldn't build guild %s: %s.", p.ID, err)
	}
}

// guildReady is the completion callback handed to every guild build, so a
// cached snapshot never carries a nil callback.
func (s *Session) guildReady(g *state.Guild) {
	if s.OnGuildReady != nil {
		s.OnGuildReady(g)
	}
}

func (s *Session) handleMemberChunk(data []byte) {
	var p gateway.MemberChunkPayload
	if err := gateway.Decode(data, &p); err != nil {
		s.sugar.Errorf("Couldn't decode member chunk: %s.", err)
		return
	}
	if err := p.Validate(); err != nil {
		s.sugar.Errorf("Rejecting member chunk: %s.", err)
		return
	}

	chunks, done := s.chunks.add(p.GuildID, p.Members)
	if !done {
		return
	}
	if err := s.builder.BuildGuildMemberChunks(p.GuildID, chunks); err != nil {
		// A chunk finishing a guild that is not mid-build means the lock
		// bookkeeping broke upstream; this must not pass silently.
		s.logger.DPanic("Member chunk bookkeeping failure.",
			zap.String("guild", p.GuildID), zap.Error(err))
	}
}

func (s *Session) handleGuildSync(data []byte) {
	var p gateway.SyncPayload
	if err := gateway.Decode(data, &p); err != nil {
		s.sugar.Errorf("Couldn't decode guild sync: %s.", err)
		return
	}

	// The sync path assumes a structurally complete guild, so a sync for a
	// guild mid-build replays after unlock.
	if s.builder.Lock().Defer(p.GuildID, func() { s.applyGuildSync(&p) }) {
		s.sugar.Debugf("Deferred sync for locked guild %s.", p.GuildID)
		return
	}
	s.applyGuildSync(&p)
}

func (s *Session) applyGuildSync(p *gateway.SyncPayload) {
	if err := s.builder.ApplyGuildSync(p.GuildID, p.Members, p.Presences); err != nil {
		s.sugar.Errorf("Couldn't apply guild sync for %s: %s.", p.GuildID, err)
	}
}

func (s *Session) handleMessageCreate(data []byte) {
	var p gateway.MessagePayload
	if err := gateway.Decode(data, &p); err != nil {
		s.sugar.Errorf("Couldn't decode message: %s.", err)
		return
	}

	// A message in a mid-build guild may reference a member that only
	// arrives with the chunks; replay it after unlock instead of dropping
	// it on the unresolved author.
	if tc := s.store.TextChannel(p.ChannelID); tc != nil {
		if s.builder.Lock().Defer(tc.GuildID(), func() { s.deliverMessage(&p) }) {
			s.sugar.Debugf("Deferred message %s for locked guild %s.", p.ID, tc.GuildID())
			return
		}
	}
	s.deliverMessage(&p)
}

func (s *Session) deliverMessage(p *gateway.MessagePayload) {
	m, err := s.builder.BuildMessage(p)
	if err != nil {
		s.sugar.Errorf("Couldn't build message %s: %s.", p.ID, err)
		return
	}
	if s.OnMessage != nil {
		s.OnMessage(m)
	}
}
