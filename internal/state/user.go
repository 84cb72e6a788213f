package state

// User is a platform account as seen by this session. Instances are owned
// by the Store's user map and mutated in place on every later sighting so
// externally-held references stay current.
type User struct {
	id            string
	name          string
	discriminator string
	avatar        string
	bot           bool
	fake          bool
}

func (u *User) ID() string            { return u.id }
func (u *User) Name() string          { return u.name }
func (u *User) Discriminator() string { return u.discriminator }
func (u *User) Avatar() string        { return u.avatar }
func (u *User) Bot() bool             { return u.bot }

// Fake reports whether this user is a locally synthesized stand-in that is
// not tracked by the store's primary user map.
func (u *User) Fake() bool { return u.fake }
