package command

import (
	"io"
	"strings"
)

// Attachment is a named payload sent alongside a channel message.
type Attachment struct {
	Name   string
	Reader io.Reader
}

// Channel is the only outbound capability the dispatch core knows about:
// deliver text, optionally with attachments, to the channel a message came
// from. The Discord layer provides the real implementation.
type Channel interface {
	Send(text string) error
	SendAttachment(text string, atts ...Attachment) error
}

// User identifies a chat-platform account.
type User struct {
	ID       string
	Username string
}

// Mention renders the platform mention string for the user.
func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Member is a user resolved within a guild: display identity, role names, and
// the voice channel they currently occupy (empty when not in voice).
type Member struct {
	User
	DisplayName    string
	RoleNames      []string
	VoiceChannelID string
}

// HasAnyRole reports whether the member holds at least one of the named roles.
func (m Member) HasAnyRole(names []string) bool {
	for _, have := range m.RoleNames {
		for _, want := range names {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Guild is the server context a message arrived in.
type Guild struct {
	ID        string
	Name      string
	OwnerID   string
	RoleNames []string
}

// ValidMessage is a normalized, guaranteed-well-formed command request. One is
// created per accepted incoming message and discarded after dispatch.
type ValidMessage struct {
	Content  string
	Guild    Guild
	Channel  Channel
	Author   Member
	Mentions []User

	commandText string
	args        []string
}

// NewValidMessage parses content against the configured prefix. The caller
// (the normalizer) has already verified the prefix is present.
func NewValidMessage(content string, guild Guild, channel Channel, author Member, mentions []User, prefix string) *ValidMessage {
	fields := strings.Fields(content)
	var commandText string
	var args []string
	if len(fields) > 0 {
		// TrimPrefix rather than slicing: a prefix containing whitespace can
		// be longer than the first field.
		commandText = strings.TrimPrefix(strings.ToLower(fields[0]), strings.ToLower(prefix))
		args = fields[1:]
	}
	return &ValidMessage{
		Content:     content,
		Guild:       guild,
		Channel:     channel,
		Author:      author,
		Mentions:    mentions,
		commandText: commandText,
		args:        args,
	}
}

// CommandText is the first whitespace-delimited token with the prefix
// stripped, lowercased.
func (m *ValidMessage) CommandText() string { return m.commandText }

// Args are the tokens after the command token, in order.
func (m *ValidMessage) Args() []string { return m.args }

// NumArgs is len(Args).
func (m *ValidMessage) NumArgs() int { return len(m.args) }
