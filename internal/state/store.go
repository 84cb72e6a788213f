package state

import (
	"sync"
)

// Store is the owning container for all live entities, keyed by the
// platform's opaque string identifiers. All creations are idempotent
// get-or-create operations because the same id may appear across multiple
// unrelated event sources; later sightings always mutate the existing
// instance in place.
type Store struct {
	mu sync.RWMutex

	users               map[string]*User
	fakeUsers           map[string]*User
	guilds              map[string]*Guild
	textChannels        map[string]*TextChannel
	voiceChannels       map[string]*VoiceChannel
	privateChannels     map[string]*PrivateChannel
	fakePrivateChannels map[string]*PrivateChannel
}

func NewStore() *Store {
	return &Store{
		users:               make(map[string]*User),
		fakeUsers:           make(map[string]*User),
		guilds:              make(map[string]*Guild),
		textChannels:        make(map[string]*TextChannel),
		voiceChannels:       make(map[string]*VoiceChannel),
		privateChannels:     make(map[string]*PrivateChannel),
		fakePrivateChannels: make(map[string]*PrivateChannel),
	}
}

func (s *Store) User(id string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

func (s *Store) FakeUser(id string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fakeUsers[id]
}

func (s *Store) Guild(id string) *Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guilds[id]
}

func (s *Store) TextChannel(id string) *TextChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textChannels[id]
}

func (s *Store) VoiceChannel(id string) *VoiceChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceChannels[id]
}

func (s *Store) PrivateChannel(id string) *PrivateChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.privateChannels[id]
}

func (s *Store) FakePrivateChannel(id string) *PrivateChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fakePrivateChannels[id]
}

// getOrCreateUser returns the tracked user for id, creating it on first
// sighting. Callers refresh the profile fields on every sighting.
func (s *Store) getOrCreateUser(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = &User{id: id}
		s.users[id] = u
	}
	return u
}

func (s *Store) putFakeUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fakeUsers[u.id] = u
}

func (s *Store) getOrCreateGuild(id string) *Guild {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[id]
	if !ok {
		g = newGuild(id)
		s.guilds[id] = g
	}
	return g
}

// getOrCreateTextChannel mirrors the channel in the global lookup map and
// in the owning guild's channel map.
func (s *Store) getOrCreateTextChannel(id string, g *Guild) *TextChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.textChannels[id]
	if !ok {
		c = newTextChannel(id, g.id)
		s.textChannels[id] = c
		g.textChannels[id] = c
	}
	return c
}

func (s *Store) getOrCreateVoiceChannel(id string, g *Guild) *VoiceChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.voiceChannels[id]
	if !ok {
		c = newVoiceChannel(id, g.id)
		s.voiceChannels[id] = c
		g.voiceChannels[id] = c
	}
	return c
}

func (s *Store) putPrivateChannel(c *PrivateChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.fake {
		s.fakePrivateChannels[c.id] = c
	} else {
		s.privateChannels[c.id] = c
	}
}
