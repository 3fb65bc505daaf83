package help

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/botcrew/internal/command"
	"github.com/keshon/botcrew/internal/dispatch"
)

type fakeChannel struct {
	sent   []string
	embeds []*discordgo.MessageEmbed
}

func (c *fakeChannel) Send(text string) error { c.sent = append(c.sent, text); return nil }
func (c *fakeChannel) SendAttachment(text string, atts ...command.Attachment) error {
	c.sent = append(c.sent, text)
	return nil
}

// embedChannel additionally accepts embeds.
type embedChannel struct {
	fakeChannel
}

func (c *embedChannel) SendEmbed(e *discordgo.MessageEmbed) error {
	c.embeds = append(c.embeds, e)
	return nil
}

type stubManager struct {
	name   string
	emoji  string
	protos []command.Prototype
}

func (s *stubManager) GiveMessage(*command.ValidMessage) dispatch.Result { return dispatch.NotRecognised }
func (s *stubManager) CommandPrototypes() []command.Prototype            { return s.protos }
func (s *stubManager) MatchingPrototype(*command.ValidMessage) (command.Prototype, bool) {
	return command.Prototype{}, false
}
func (s *stubManager) Name() string               { return s.name }
func (s *stubManager) Emoji() string              { return s.emoji }
func (s *stubManager) RegisterGate(dispatch.Gate) {}
func (s *stubManager) LoadPersistentData() bool   { return true }

func message(content string, ch command.Channel) *command.ValidMessage {
	guild := command.Guild{ID: "guild1", OwnerID: "owner1"}
	author := command.Member{User: command.User{ID: "user1", Username: "sam"}}
	return command.NewValidMessage(content, guild, ch, author, nil, "!")
}

func djStub() *stubManager {
	return &stubManager{name: "DJ", emoji: "🎶", protos: []command.Prototype{
		{Names: []string{"play"}, ArgNames: []string{"song"}, MinArgs: 1, MaxArgs: command.UnlimitedArgs, Level: command.Anyone},
		{Names: []string{"clearqueue"}, MinArgs: 0, MaxArgs: 0, Level: command.Mod},
	}}
}

func TestCommandTablePerManager(t *testing.T) {
	m := New([]dispatch.Manager{djStub(), &stubManager{name: "Image", emoji: "📷"}})

	var names []string
	for _, proto := range m.CommandPrototypes() {
		names = append(names, proto.Names[0])
	}
	assert.Equal(t, []string{"help", "helphelp", "helpdj", "helpimage"}, names)
}

func TestOverviewListsEveryBot(t *testing.T) {
	m := New([]dispatch.Manager{djStub()})

	ch := &fakeChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!help", ch)))
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "Help")
	assert.Contains(t, ch.sent[0], "DJ")
	assert.Contains(t, ch.sent[0], "`helpdj`")
}

func TestBotDetailMarksModCommands(t *testing.T) {
	m := New([]dispatch.Manager{djStub()})

	ch := &fakeChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!helpdj", ch)))
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "play <song>")
	// Without a gate, everything renders unannotated.
	assert.NotContains(t, ch.sent[0], "*clearqueue*")
}

func TestHelpUsesEmbedWhenAvailable(t *testing.T) {
	m := New([]dispatch.Manager{djStub()})

	ch := &embedChannel{}
	require.Equal(t, dispatch.Success, m.GiveMessage(message("!help", ch)))
	assert.Empty(t, ch.sent)
	require.Len(t, ch.embeds, 1)
	assert.Equal(t, embedColor, ch.embeds[0].Color)
	assert.Contains(t, ch.embeds[0].Description, "DJ")
}

func TestHelpTableSurvivesValidation(t *testing.T) {
	dj := djStub()
	m := New([]dispatch.Manager{dj})
	assert.NoError(t, dispatch.Validate([]dispatch.Manager{dj, m}))
}
