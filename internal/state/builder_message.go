package state

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"pkg.parley.chat/parley/internal/gateway"
)

var (
	// ErrMissingChannel reports a message whose channel id resolves to no
	// known text, private or fake private channel.
	ErrMissingChannel = errors.New("missing channel")

	// ErrMissingUser reports a non-webhook guild message whose author is
	// not in the user map.
	ErrMissingUser = errors.New("missing user")
)

var channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)

// BuildMessage assembles a transient Message from one payload. The message
// is not cached; the caller discards it after use.
func (b *Builder) BuildMessage(p *gateway.MessagePayload) (*Message, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fromWebhook := p.WebhookID != ""

	var guild *Guild
	var private *PrivateChannel
	if tc := b.store.TextChannel(p.ChannelID); tc != nil {
		guild = b.store.Guild(tc.guildID)
	} else if pc := b.store.PrivateChannel(p.ChannelID); pc != nil {
		private = pc
	} else if pc := b.store.FakePrivateChannel(p.ChannelID); pc != nil {
		// A private channel owned by a different partition; the embedded
		// author fields are the only user updates this session ever sees
		// for the recipient, so refresh the profile from them.
		b.fillUser(pc.recipient, &p.Author)
		private = pc
	} else {
		return nil, fmt.Errorf("message %s in channel %s: %w", p.ID, p.ChannelID, ErrMissingChannel)
	}

	msg := &Message{
		id:              p.ID,
		channelID:       p.ChannelID,
		private:         private != nil,
		webhook:         fromWebhook,
		content:         p.Content,
		tts:             p.TTS,
		pinned:          p.Pinned,
		mentionEveryone: p.MentionEveryone,
	}

	if p.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("message %s: couldn't parse timestamp: %w", p.ID, err)
		}
		msg.timestamp = t
	}
	if p.EditedTimestamp != "" {
		t, err := time.Parse(time.RFC3339, p.EditedTimestamp)
		if err != nil {
			return nil, fmt.Errorf("message %s: couldn't parse edited timestamp: %w", p.ID, err)
		}
		msg.editedTimestamp = t
		msg.edited = true
	}

	if private != nil {
		// The platform supplies no mention/attachment/embed structure on
		// direct messages; the author is always the known recipient.
		msg.author = private.recipient
		return msg, nil
	}

	if author := b.store.User(p.Author.ID); author != nil {
		msg.author = author
	} else if fromWebhook {
		msg.author = b.buildFakeUser(&p.Author)
	} else {
		return nil, fmt.Errorf("message %s author %s: %w", p.ID, p.Author.ID, ErrMissingUser)
	}

	msg.attachments = make([]Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		msg.attachments = append(msg.attachments, Attachment{
			ID:       a.ID,
			URL:      a.URL,
			ProxyURL: a.ProxyURL,
			Filename: a.Filename,
			Size:     a.Size,
			Height:   a.Height,
			Width:    a.Width,
		})
	}

	msg.embeds = make([]Embed, 0, len(p.Embeds))
	for i := range p.Embeds {
		msg.embeds = append(msg.embeds, buildEmbed(&p.Embeds[i]))
	}

	msg.mentionedUsers = b.sortedUserMentions(p.Content, p.Mentions)
	msg.mentionedRoles = sortedRoleMentions(guild, p.Content, p.MentionRoles)
	msg.mentionedChannels = channelMentions(guild, p.Content)
	return msg, nil
}

// sortedUserMentions orders mentioned users by the first occurrence of
// their mention marker in the content. The payload array order is not
// trustworthy; a marker absent from the content sorts first.
func (b *Builder) sortedUserMentions(content string, mentions []gateway.UserPayload) []*User {
	type userAt struct {
		offset int
		user   *User
	}
	found := make([]userAt, 0, len(mentions))
	for i := range mentions {
		u := b.store.User(mentions[i].ID)
		if u == nil {
			b.logger.Debugf("Skipping mention of unresolved user %s.", mentions[i].ID)
			continue
		}
		found = append(found, userAt{offset: strings.Index(content, "<@"+u.id+">"), user: u})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	users := make([]*User, len(found))
	for i, f := range found {
		users[i] = f.user
	}
	return users
}

func sortedRoleMentions(g *Guild, content string, roleIDs []string) []*Role {
	type roleAt struct {
		offset int
		role   *Role
	}
	found := make([]roleAt, 0, len(roleIDs))
	for _, id := range roleIDs {
		r := g.roles[id]
		if r == nil {
			continue
		}
		found = append(found, roleAt{offset: strings.Index(content, "<@&"+id+">"), role: r})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	roles := make([]*Role, len(found))
	for i, f := range found {
		roles[i] = f.role
	}
	return roles
}

// channelMentions extracts channel references purely by scanning the
// content for the channel-reference markup, de-duplicated in
// first-occurrence order.
func channelMentions(g *Guild, content string) []*TextChannel {
	var channels []*TextChannel
	seen := make(map[string]struct{})
	for _, m := range channelMentionPattern.FindAllStringSubmatch(content, -1) {
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c := g.textChannels[id]; c != nil {
			channels = append(channels, c)
		}
	}
	return channels
}

func buildEmbed(p *gateway.EmbedPayload) Embed {
	e := Embed{
		URL:         p.URL,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
	}
	if p.Thumbnail != nil {
		e.Thumbnail = &EmbedMedia{URL: p.Thumbnail.URL, ProxyURL: p.Thumbnail.ProxyURL, Width: p.Thumbnail.Width, Height: p.Thumbnail.Height}
	}
	if p.Provider != nil {
		e.Provider = &EmbedProvider{Name: p.Provider.Name, URL: p.Provider.URL}
	}
	if p.Author != nil {
		e.Author = &EmbedProvider{Name: p.Author.Name, URL: p.Author.URL}
	}
	if p.Video != nil {
		e.Video = &EmbedMedia{URL: p.Video.URL, Width: p.Video.Width, Height: p.Video.Height}
	}
	return e
}
