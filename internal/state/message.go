package state

import (
	"time"
)

// Attachment is one file attached to a message.
type Attachment struct {
	ID       string
	URL      string
	ProxyURL string
	Filename string
	Size     int
	Height   int
	Width    int
}

// EmbedMedia is an embed thumbnail or video reference.
type EmbedMedia struct {
	URL      string
	ProxyURL string
	Width    int
	Height   int
}

// EmbedProvider names an embed's site provider or author.
type EmbedProvider struct {
	Name string
	URL  string
}

// Embed is one rich-content block attached to a message.
type Embed struct {
	URL         string
	Title       string
	Description string
	Type        string
	Thumbnail   *EmbedMedia
	Provider    *EmbedProvider
	Author      *EmbedProvider
	Video       *EmbedMedia
}

// Message is built atomically from one inbound payload and not cached; the
// caller discards it after use. Channel references are carried by id.
type Message struct {
	id              string
	channelID       string
	private         bool
	webhook         bool
	content         string
	author          *User
	timestamp       time.Time
	editedTimestamp time.Time
	edited          bool
	tts             bool
	pinned          bool
	mentionEveryone bool

	attachments       []Attachment
	embeds            []Embed
	mentionedUsers    []*User
	mentionedRoles    []*Role
	mentionedChannels []*TextChannel
}

func (m *Message) ID() string                 { return m.id }
func (m *Message) ChannelID() string          { return m.channelID }
func (m *Message) Private() bool              { return m.private }
func (m *Message) Webhook() bool              { return m.webhook }
func (m *Message) Content() string            { return m.content }
func (m *Message) Author() *User              { return m.author }
func (m *Message) Timestamp() time.Time       { return m.timestamp }
func (m *Message) EditedTimestamp() time.Time { return m.editedTimestamp }
func (m *Message) Edited() bool               { return m.edited }
func (m *Message) TTS() bool                  { return m.tts }
func (m *Message) Pinned() bool               { return m.pinned }
func (m *Message) MentionsEveryone() bool     { return m.mentionEveryone }

// Attachments and Embeds preserve payload array order.
func (m *Message) Attachments() []Attachment { return m.attachments }
func (m *Message) Embeds() []Embed           { return m.embeds }

// MentionedUsers and MentionedRoles are ordered by each mention's first
// occurrence in the message content, not by payload order.
func (m *Message) MentionedUsers() []*User           { return m.mentionedUsers }
func (m *Message) MentionedRoles() []*Role           { return m.mentionedRoles }
func (m *Message) MentionedChannels() []*TextChannel { return m.mentionedChannels }
