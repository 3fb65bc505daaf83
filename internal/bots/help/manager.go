// Package help implements the help bot: a `help` overview plus one
// `help<bot>` command per registered module, annotated with the permission
// levels currently in force for the guild.
package help

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
)

const embedColor = 0x9b59b6

// EmbedSender is implemented by channels that can deliver rich embeds. Help
// output falls back to plain text on channels that cannot.
type EmbedSender interface {
	SendEmbed(e *discordgo.MessageEmbed) error
}

// State is empty; the help bot keeps nothing per guild and persists nothing.
type State struct{}

// Manager is the help bot module.
type Manager struct {
	*dispatch.Core[*State]

	managers []dispatch.Manager
	state    State
}

var _ dispatch.Manager = (*Manager)(nil)

// New builds the help manager over the other managers. The help bot lists
// itself too, so it is prepended to the set it documents.
func New(others []dispatch.Manager) *Manager {
	m := &Manager{}
	m.Core = dispatch.NewCore("Help", "❓", nil, m.stateFor, nil)
	m.managers = append([]dispatch.Manager{m}, others...)

	cmds := []command.Command[*State]{
		command.New([]string{"help"}, m.overview, nil, 0, command.UnlimitedArgs, command.Anyone),
	}
	for _, mgr := range m.managers {
		name := "help" + strings.ToLower(mgr.Name())
		cmds = append(cmds, command.New([]string{name}, m.botDetail(mgr), nil, 0, command.UnlimitedArgs, command.Anyone))
	}
	m.SetCommands(cmds)
	return m
}

// LoadPersistentData is a no-op; there is nothing to restore.
func (m *Manager) LoadPersistentData() bool { return true }

func (m *Manager) stateFor(*command.ValidMessage) *State { return &m.state }

func (m *Manager) overview(msg *command.ValidMessage, _ *State) bool {
	var lines []string
	for _, mgr := range m.managers {
		lines = append(lines, fmt.Sprintf("%s **%s** — `help%s` for its commands", mgr.Emoji(), mgr.Name(), strings.ToLower(mgr.Name())))
	}
	return m.sendHelp(msg, "Bots on duty", strings.Join(lines, "\n"))
}

func (m *Manager) botDetail(mgr dispatch.Manager) command.Handler[*State] {
	return func(msg *command.ValidMessage, _ *State) bool {
		body := m.commandList(msg.Guild.ID, mgr)
		if explanation := m.formatExplanation(msg.Guild.ID, mgr); explanation != "" {
			body += "\n\n" + explanation
		}
		title := fmt.Sprintf("%s %s commands", mgr.Emoji(), mgr.Name())
		return m.sendHelp(msg, title, body)
	}
}

// commandList renders one module's command table, marking mod-only commands
// in italics and owner-only commands with strikethrough.
func (m *Manager) commandList(guildID string, mgr dispatch.Manager) string {
	gate := m.Gate()
	var lines []string
	for _, proto := range mgr.CommandPrototypes() {
		level := command.Anyone
		if gate != nil {
			level = gate.PermissionLevelFor(guildID, proto)
		}
		switch level {
		case command.Mod:
			lines = append(lines, "*"+proto.FullDescription()+"*")
		case command.Owner:
			lines = append(lines, "~~"+proto.FullDescription()+"~~")
		default:
			lines = append(lines, proto.FullDescription())
		}
	}
	return strings.Join(lines, "\n")
}

// formatExplanation explains the annotations, but only the ones that actually
// occur for this module in this guild.
func (m *Manager) formatExplanation(guildID string, mgr dispatch.Manager) string {
	gate := m.Gate()
	if gate == nil {
		return ""
	}
	shown := []dispatch.Manager{mgr}
	var lines []string
	if gate.HasPermissionLevel(guildID, command.Mod, shown) {
		lines = append(lines, "*command* means mod-only")
	}
	if gate.HasPermissionLevel(guildID, command.Owner, shown) {
		lines = append(lines, "~~command~~ means owner-only")
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) sendHelp(msg *command.ValidMessage, title, body string) bool {
	if es, ok := msg.Channel.(EmbedSender); ok {
		e := embed.NewEmbed().
			SetColor(embedColor).
			SetTitle(title).
			SetDescription(body)
		return es.SendEmbed(e.MessageEmbed) == nil
	}
	return msg.Channel.Send(fmt.Sprintf("**%s**\n%s", title, body)) == nil
}
