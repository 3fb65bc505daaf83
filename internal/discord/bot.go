// Package discord connects the dispatch core to Discord: session lifecycle,
// event wiring, and the translation of discordgo events into raw messages.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/config"
	"github.com/keshon/botcrew/internal/dispatch"
)

// Observer is fed every ordinary (non-command) guild message. The imitation
// bot learns from these.
type Observer interface {
	Observe(guildID, userID, content string)
}

// Bot owns the Discord session and routes events into the dispatcher.
type Bot struct {
	dg         *discordgo.Session
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	observer   Observer
}

// StartBot runs the bot until ctx is cancelled. observer may be nil.
func StartBot(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, observer Observer) error {
	b := &Bot{cfg: cfg, dispatcher: d, observer: observer}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, closing session")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Str("prefix", b.cfg.CommandPrefix).
		Msg("bot is running")
}

// onMessageCreate translates one Discord message into the dispatch core's raw
// form. Non-command guild messages feed the observer instead.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	raw := b.rawMessage(s, m)

	if !raw.IsSelf && m.GuildID != "" && !m.Author.Bot &&
		!strings.HasPrefix(strings.ToLower(m.Content), strings.ToLower(b.cfg.CommandPrefix)) {
		if b.observer != nil {
			b.observer.Observe(m.GuildID, m.Author.ID, m.Content)
		}
		return
	}

	b.dispatcher.HandleRaw(raw)
}

func (b *Bot) rawMessage(s *discordgo.Session, m *discordgo.MessageCreate) dispatch.RawMessage {
	raw := dispatch.RawMessage{
		Content: m.Content,
		IsSelf:  s.State.User != nil && m.Author.ID == s.State.User.ID,
		Channel: &channel{session: s, id: m.ChannelID},
	}

	for _, u := range m.Mentions {
		raw.Mentions = append(raw.Mentions, command.User{ID: u.ID, Username: u.Username})
	}

	if m.GuildID == "" {
		return raw
	}

	guild, err := s.State.Guild(m.GuildID)
	if err != nil {
		log.Warn().Err(err).Str("guild", m.GuildID).Msg("guild not in state cache")
		return raw
	}

	roleNames := make(map[string]string, len(guild.Roles))
	var guildRoles []string
	for _, role := range guild.Roles {
		roleNames[role.ID] = role.Name
		guildRoles = append(guildRoles, role.Name)
	}
	raw.Guild = &command.Guild{
		ID:        guild.ID,
		Name:      guild.Name,
		OwnerID:   guild.OwnerID,
		RoleNames: guildRoles,
	}

	member := m.Member
	if member == nil {
		member, err = s.State.Member(m.GuildID, m.Author.ID)
		if err != nil {
			log.Warn().Err(err).Str("user", m.Author.ID).Msg("member not resolvable")
			return raw
		}
	}

	var memberRoles []string
	for _, roleID := range member.Roles {
		if name, ok := roleNames[roleID]; ok {
			memberRoles = append(memberRoles, name)
		}
	}

	displayName := member.Nick
	if displayName == "" {
		displayName = m.Author.Username
	}

	var voiceChannelID string
	for _, vs := range guild.VoiceStates {
		if vs.UserID == m.Author.ID {
			voiceChannelID = vs.ChannelID
			break
		}
	}

	raw.Member = &command.Member{
		User:           command.User{ID: m.Author.ID, Username: m.Author.Username},
		DisplayName:    displayName,
		RoleNames:      memberRoles,
		VoiceChannelID: voiceChannelID,
	}
	return raw
}
