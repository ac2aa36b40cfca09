package discord

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
)

// Reply sends a plain text reply in the message's channel.
func Reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, content); err != nil {
		slog.Warn("discord: failed to send reply", "channel_id", m.ChannelID, "err", err)
	}
}

// Replyf formats and sends a plain text reply.
func Replyf(s *discordgo.Session, m *discordgo.MessageCreate, format string, args ...any) {
	Reply(s, m, fmt.Sprintf(format, args...))
}

// ReplyEmbed sends an embed reply in the message's channel.
func ReplyEmbed(s *discordgo.Session, m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		slog.Warn("discord: failed to send embed", "channel_id", m.ChannelID, "err", err)
	}
}

// ReplyComplex sends a reply with components (buttons) attached.
func ReplyComplex(s *discordgo.Session, m *discordgo.MessageCreate, send *discordgo.MessageSend) (*discordgo.Message, error) {
	msg, err := s.ChannelMessageSendComplex(m.ChannelID, send)
	if err != nil {
		return nil, fmt.Errorf("discord: send message: %w", err)
	}
	return msg, nil
}

// SendStatus posts a status message and returns it so the caller can
// edit it as a long operation progresses.
func SendStatus(s *discordgo.Session, channelID, content string) *discordgo.Message {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		slog.Warn("discord: failed to send status", "channel_id", channelID, "err", err)
		return nil
	}
	return msg
}

// EditStatus updates a previously sent status message. A nil msg (from
// a failed SendStatus) is ignored.
func EditStatus(s *discordgo.Session, msg *discordgo.Message, content string) {
	if msg == nil {
		return
	}
	if _, err := s.ChannelMessageEdit(msg.ChannelID, msg.ID, content); err != nil {
		slog.Warn("discord: failed to edit status", "message_id", msg.ID, "err", err)
	}
}

// SendFiles uploads the given files to a channel with an accompanying
// message. Files are streamed from disk, not buffered.
func SendFiles(s *discordgo.Session, channelID, content string, paths []string) error {
	var files []*discordgo.File
	var closers []*os.File

	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("discord: open upload %q: %w", p, err)
		}
		closers = append(closers, f)
		files = append(files, &discordgo.File{
			Name:   filepath.Base(p),
			Reader: f,
		})
	}

	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Files:   files,
	})
	if err != nil {
		return fmt.Errorf("discord: upload files: %w", err)
	}
	return nil
}

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send ephemeral response", "err", err)
	}
}

// UpdateMessage edits the message a component interaction came from.
func UpdateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err != nil {
		slog.Warn("discord: failed to update message", "err", err)
	}
}
