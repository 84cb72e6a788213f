package state

// VoiceState tracks a member's voice connection. The connected channel is a
// back-link by id; membership is mirrored in the voice channel's
// connected-members map.
type VoiceState struct {
	selfMuted     bool
	selfDeafened  bool
	guildMuted    bool
	guildDeafened bool
	suppressed    bool
	sessionID     string
	channelID     string
}

func (v *VoiceState) SelfMuted() bool     { return v.selfMuted }
func (v *VoiceState) SelfDeafened() bool  { return v.selfDeafened }
func (v *VoiceState) GuildMuted() bool    { return v.guildMuted }
func (v *VoiceState) GuildDeafened() bool { return v.guildDeafened }
func (v *VoiceState) Suppressed() bool    { return v.suppressed }
func (v *VoiceState) SessionID() string   { return v.sessionID }

// ChannelID returns the id of the connected voice channel, or an empty
// string when the member is not connected.
func (v *VoiceState) ChannelID() string { return v.channelID }
