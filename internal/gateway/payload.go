package gateway

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMissingField reports an inbound payload that lacks a field the build
// process cannot proceed without.
var ErrMissingField = errors.New("payload is missing a required field")

// UserPayload carries the platform's user object as delivered inline in
// guild, member and message payloads.
type UserPayload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
}

func (p *UserPayload) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("user: %w: id", ErrMissingField)
	}
	return nil
}

type RolePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Permissions int64  `json:"permissions"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
}

type MemberPayload struct {
	User     UserPayload `json:"user"`
	Nick     string      `json:"nick"`
	Roles    []string    `json:"roles"`
	JoinedAt string      `json:"joined_at"`
	Mute     bool        `json:"mute"`
	Deaf     bool        `json:"deaf"`
}

func (p *MemberPayload) Validate() error {
	return p.User.Validate()
}

// GamePayload describes the activity attached to a presence. Type is a
// pointer so an absent type can fall back to the default activity type.
type GamePayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type *int   `json:"type"`
}

type PresencePayload struct {
	User   UserPayload  `json:"user"`
	Status string       `json:"status"`
	Game   *GamePayload `json:"game"`
}

// Channel type discriminators as sent on the wire.
const (
	ChannelTypeText  = 0
	ChannelTypeVoice = 2
)

type ChannelPayload struct {
	ID                   string            `json:"id"`
	Type                 int               `json:"type"`
	Name                 string            `json:"name"`
	Topic                string            `json:"topic"`
	Position             int               `json:"position"`
	Bitrate              int               `json:"bitrate"`
	UserLimit            int               `json:"user_limit"`
	PermissionOverwrites []OverridePayload `json:"permission_overwrites"`
}

func (p *ChannelPayload) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("channel: %w: id", ErrMissingField)
	}
	return nil
}

type OverridePayload struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Allow int64  `json:"allow"`
	Deny  int64  `json:"deny"`
}

type VoiceStatePayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	SessionID string `json:"session_id"`
	SelfMute  bool   `json:"self_mute"`
	SelfDeaf  bool   `json:"self_deaf"`
	Mute      bool   `json:"mute"`
	Deaf      bool   `json:"deaf"`
	Suppress  bool   `json:"suppress"`
}

// GuildPayload is the initial snapshot describing a guild's known state at
// subscription time. Members may be a strict subset of MemberCount; the
// remainder arrives through member chunks.
type GuildPayload struct {
	ID                string              `json:"id"`
	Unavailable       bool                `json:"unavailable"`
	Name              string              `json:"name"`
	Region            string              `json:"region"`
	Icon              string              `json:"icon"`
	OwnerID           string              `json:"owner_id"`
	AFKChannelID      string              `json:"afk_channel_id"`
	AFKTimeout        int                 `json:"afk_timeout"`
	VerificationLevel int                 `json:"verification_level"`
	MemberCount       int                 `json:"member_count"`
	Roles             []RolePayload       `json:"roles"`
	Members           []MemberPayload     `json:"members"`
	Presences         []PresencePayload   `json:"presences"`
	Channels          []ChannelPayload    `json:"channels"`
	VoiceStates       []VoiceStatePayload `json:"voice_states"`
}

func (p *GuildPayload) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("guild: %w: id", ErrMissingField)
	}
	return nil
}

type PrivateChannelPayload struct {
	ID         string        `json:"id"`
	Recipients []UserPayload `json:"recipients"`
}

func (p *PrivateChannelPayload) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("private channel: %w: id", ErrMissingField)
	}
	if len(p.Recipients) == 0 {
		return fmt.Errorf("private channel: %w: recipients", ErrMissingField)
	}
	return nil
}

type AttachmentPayload struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	ProxyURL string `json:"proxy_url"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
}

type EmbedMediaPayload struct {
	URL      string `json:"url"`
	ProxyURL string `json:"proxy_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type EmbedProviderPayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type EmbedPayload struct {
	URL         string                `json:"url"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Type        string                `json:"type"`
	Thumbnail   *EmbedMediaPayload    `json:"thumbnail"`
	Provider    *EmbedProviderPayload `json:"provider"`
	Author      *EmbedProviderPayload `json:"author"`
	Video       *EmbedMediaPayload    `json:"video"`
}

type MessagePayload struct {
	ID              string              `json:"id"`
	ChannelID       string              `json:"channel_id"`
	Content         string              `json:"content"`
	Author          UserPayload         `json:"author"`
	WebhookID       string              `json:"webhook_id"`
	Timestamp       string              `json:"timestamp"`
	EditedTimestamp string              `json:"edited_timestamp"`
	TTS             bool                `json:"tts"`
	MentionEveryone bool                `json:"mention_everyone"`
	Pinned          bool                `json:"pinned"`
	Attachments     []AttachmentPayload `json:"attachments"`
	Embeds          []EmbedPayload      `json:"embeds"`
	Mentions        []UserPayload       `json:"mentions"`
	MentionRoles    []string            `json:"mention_roles"`
}

func (p *MessagePayload) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("message: %w: id", ErrMissingField)
	}
	if p.ChannelID == "" {
		return fmt.Errorf("message: %w: channel_id", ErrMissingField)
	}
	return nil
}

// MemberChunkPayload delivers a subset of a guild's members requested when
// the snapshot's inline member list was incomplete.
type MemberChunkPayload struct {
	GuildID string          `json:"guild_id"`
	Members []MemberPayload `json:"members"`
}

func (p *MemberChunkPayload) Validate() error {
	if p.GuildID == "" {
		return fmt.Errorf("member chunk: %w: guild_id", ErrMissingField)
	}
	return nil
}

// SyncPayload re-delivers members and presences for richer online-status
// accuracy; used only for certain account types.
type SyncPayload struct {
	GuildID   string            `json:"id"`
	Members   []MemberPayload   `json:"members"`
	Presences []PresencePayload `json:"presences"`
}

// Decode unmarshals a raw event body into the given payload struct.
func Decode(raw []byte, into interface{}) error {
	if err := sonic.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("couldn't decode payload: %w", err)
	}
	return nil
}
