package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/botcrew/internal/command"
)

// channel adapts a Discord channel to the command.Channel capability the
// dispatch core sends through. It also satisfies help.EmbedSender.
type channel struct {
	session *discordgo.Session
	id      string
}

func (c *channel) Send(text string) error {
	_, err := c.session.ChannelMessageSend(c.id, text)
	return err
}

func (c *channel) SendAttachment(text string, atts ...command.Attachment) error {
	files := make([]*discordgo.File, len(atts))
	for i, att := range atts {
		files[i] = &discordgo.File{Name: att.Name, Reader: att.Reader}
	}
	_, err := c.session.ChannelMessageSendComplex(c.id, &discordgo.MessageSend{
		Content: text,
		Files:   files,
	})
	return err
}

func (c *channel) SendEmbed(e *discordgo.MessageEmbed) error {
	_, err := c.session.ChannelMessageSendEmbed(c.id, e)
	return err
}
