package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
)

// VoteKickCommands handles !votekick and !randomkick.
type VoteKickCommands struct {
	kicks *games.VoteKicks
	perms *discord.PermissionChecker
	rng   *rand.Rand
}

// NewVoteKickCommands creates a VoteKickCommands handler.
func NewVoteKickCommands(kicks *games.VoteKicks, perms *discord.PermissionChecker, rng *rand.Rand) *VoteKickCommands {
	return &VoteKickCommands{kicks: kicks, perms: perms, rng: rng}
}

// Register registers the kick commands with the router.
func (v *VoteKickCommands) Register(router *discord.Router) {
	router.RegisterCommand("votekick", v.handleVoteKick)
	router.RegisterCommand("randomkick", v.handleRandomKick)
}

func (v *VoteKickCommands) handleVoteKick(s *discordgo.Session, m *discordgo.MessageCreate, args []string, raw string) {
	if len(args) == 0 {
		v.castVote(s, m)
		return
	}
	v.startKick(s, m, raw)
}

func (v *VoteKickCommands) startKick(s *discordgo.Session, m *discordgo.MessageCreate, query string) {
	channelID := voiceChannelOf(s, m.GuildID, m.Author.ID)
	if channelID == "" {
		discord.Reply(s, m, "You have to be in the voice channel to start a votekick.")
		return
	}
	voters := voiceChannelMembers(s, m.GuildID, channelID)

	target, ok := games.MatchMember(query, voters)
	if !ok {
		discord.Replyf(s, m, "Nobody in the channel matches %q.", strings.TrimSpace(query))
		return
	}

	kick, err := v.kicks.Start(m.GuildID, m.Author.ID, target, len(voters))
	if err != nil {
		discord.Reply(s, m, kickErrorMessage(err))
		return
	}
	discord.Replyf(s, m, "⚖️ Votekick against **%s** started by %s. %d/%d votes — `!votekick` to agree, 60 seconds.",
		kick.Target.DisplayName(), displayNameOf(m), kick.Votes(), kick.Required)
}

func (v *VoteKickCommands) castVote(s *discordgo.Session, m *discordgo.MessageCreate) {
	kick, passed, err := v.kicks.Vote(m.GuildID, m.Author.ID)
	if err != nil {
		discord.Reply(s, m, kickErrorMessage(err))
		return
	}
	if !passed {
		discord.Replyf(s, m, "⚖️ %d/%d votes against **%s**.", kick.Votes(), kick.Required, kick.Target.DisplayName())
		return
	}

	v.disconnect(s, m, kick.Target)
}

func (v *VoteKickCommands) handleRandomKick(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	if !v.perms.IsAdmin(m) {
		discord.Reply(s, m, "Only admins can tempt fate.")
		return
	}

	channelID := voiceChannelOf(s, m.GuildID, m.Author.ID)
	if channelID == "" {
		discord.Reply(s, m, "Join the voice channel first.")
		return
	}
	victims := voiceChannelMembers(s, m.GuildID, channelID)
	if len(victims) == 0 {
		discord.Reply(s, m, "Nobody to kick.")
		return
	}

	target := victims[v.rng.IntN(len(victims))]
	discord.Replyf(s, m, "🎲 The wheel of fate spins... **%s**!", target.DisplayName())
	v.disconnect(s, m, target)
}

// disconnect drops the member from voice and announces it.
func (v *VoteKickCommands) disconnect(s *discordgo.Session, m *discordgo.MessageCreate, target games.Member) {
	if err := s.GuildMemberMove(m.GuildID, target.ID, nil); err != nil {
		slog.Error("commands: voice disconnect failed", "guild_id", m.GuildID, "target", target.ID, "error", err)
		discord.Replyf(s, m, "Couldn't disconnect **%s**. They live, for now.", target.DisplayName())
		return
	}
	discord.Replyf(s, m, "👢 **%s** has been removed from voice.", target.DisplayName())
}

// kickErrorMessage maps a games votekick error to the chat reply.
func kickErrorMessage(err error) string {
	switch {
	case errors.Is(err, games.ErrKickActive):
		return "A votekick is already running."
	case errors.Is(err, games.ErrNoKick):
		return "No votekick is running. Start one with `!votekick <name>`."
	case errors.Is(err, games.ErrAlreadyVoted):
		return "You already voted."
	case errors.Is(err, games.ErrTooFewVoters):
		return fmt.Sprintf("Votekicks need at least %d people in the channel.", games.MinKickVoters)
	case errors.Is(err, games.ErrTargetIsBot):
		return "Nice try. Bots are immune."
	case errors.Is(err, games.ErrSelfKick):
		return "You can just leave, you know."
	default:
		return "Votekick bookkeeping failed. Check the logs."
	}
}
