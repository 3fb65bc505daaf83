package dispatch

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
)

// RawMessage is one incoming chat event before validation. Guild and Member
// are nil when the platform could not resolve them (DMs, webhook authors).
type RawMessage struct {
	Content  string
	IsSelf   bool
	Guild    *command.Guild
	Member   *command.Member
	Channel  command.Channel
	Mentions []command.User
}

// Normalize turns a raw event into a ValidMessage, or rejects it. Messages
// from the bot itself and messages without the prefix are ignored silently;
// missing guild or member context is reported to the channel before aborting.
func Normalize(raw RawMessage, prefix string) (*command.ValidMessage, bool) {
	if raw.IsSelf {
		return nil, false
	}
	if !strings.HasPrefix(strings.ToLower(raw.Content), strings.ToLower(prefix)) {
		return nil, false
	}
	if raw.Guild == nil {
		log.Error().Msg("message has no guild context")
		if err := raw.Channel.Send("This command only works inside a server."); err != nil {
			log.Error().Err(err).Msg("failed to send guild-context error")
		}
		return nil, false
	}
	if raw.Member == nil {
		log.Error().Str("guild", raw.Guild.ID).Msg("message author has no resolvable member")
		if err := raw.Channel.Send("I can't work out who you are on this server."); err != nil {
			log.Error().Err(err).Msg("failed to send member-context error")
		}
		return nil, false
	}
	return command.NewValidMessage(raw.Content, *raw.Guild, raw.Channel, *raw.Member, raw.Mentions, prefix), true
}
