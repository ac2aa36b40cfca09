// Package commands implements the bot's prefix chat commands: clip
// capture and export, soundboard and TTS playback, Dota stats, and the
// social games (bets, polls, votekicks, squads, quotes).
package commands

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
	"github.com/roshanbot/roshan/internal/voice"
)

// voiceChannelOf returns the voice channel the user currently sits in,
// or "" when they are not connected.
func voiceChannelOf(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// voiceChannelMembers returns the humans connected to the given voice
// channel as game members.
func voiceChannelMembers(s *discordgo.Session, guildID, channelID string) []games.Member {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	var members []games.Member
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m := games.Member{ID: vs.UserID}
		if member, err := s.State.Member(guildID, vs.UserID); err == nil {
			m.Nick = member.Nick
			if member.User != nil {
				m.Username = member.User.Username
				m.Bot = member.User.Bot
			}
		}
		if m.Bot {
			continue
		}
		members = append(members, m)
	}
	return members
}

// joinCallerChannel moves the bot into the voice channel the message
// author sits in. Replies with guidance and returns false when they are
// not in one or the join fails.
func joinCallerChannel(s *discordgo.Session, m *discordgo.MessageCreate, joiner VoiceJoiner, sink voice.FrameSink) bool {
	channelID := voiceChannelOf(s, m.GuildID, m.Author.ID)
	if channelID == "" {
		discord.Reply(s, m, "Join a voice channel first.")
		return false
	}
	if err := joiner.Join(m.GuildID, channelID, sink); err != nil {
		slog.Error("commands: voice join failed", "guild_id", m.GuildID, "channel_id", channelID, "error", err)
		discord.Reply(s, m, "Could not join your voice channel.")
		return false
	}
	return true
}

// messageMember converts a message author to a game member.
func messageMember(m *discordgo.MessageCreate) games.Member {
	gm := games.Member{ID: m.Author.ID, Username: m.Author.Username}
	if m.Member != nil {
		gm.Nick = m.Member.Nick
	}
	return gm
}

// displayNameOf returns the author's guild nickname, falling back to
// the account name.
func displayNameOf(m *discordgo.MessageCreate) string {
	return messageMember(m).DisplayName()
}
