package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
)

// barWidth is the character width of a poll result bar.
const barWidth = 10

// PollCommands handles !poll, !vote and !pollclose.
type PollCommands struct {
	polls *games.Polls
}

// NewPollCommands creates a PollCommands handler.
func NewPollCommands(polls *games.Polls) *PollCommands {
	return &PollCommands{polls: polls}
}

// Register registers the poll commands with the router.
func (p *PollCommands) Register(router *discord.Router) {
	router.RegisterCommand("poll", p.handlePoll)
	router.RegisterCommand("vote", p.handleVote)
	router.RegisterCommand("pollclose", p.handleClose)
}

func (p *PollCommands) handlePoll(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, raw string) {
	question, options := games.ParsePollInput(raw)
	if question == "" {
		discord.Reply(s, m, "Usage: `!poll Question?` or `!poll Question? | option | option`")
		return
	}

	poll, err := p.polls.Start(m.GuildID, m.Author.ID, question, options)
	if err != nil {
		discord.Reply(s, m, pollErrorMessage(err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **%s**\n", poll.Question)
	for i, opt := range poll.Options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, opt)
	}
	sb.WriteString("Vote with `!vote <number>`. Closes in 2 minutes.")
	discord.Reply(s, m, sb.String())

	// Announce results when the poll runs out on its own.
	guildID, channelID := m.GuildID, m.ChannelID
	time.AfterFunc(games.DefaultPollDuration, func() {
		closed, err := p.polls.Close(guildID)
		if err != nil {
			// Already closed by hand.
			return
		}
		discord.SendStatus(s, channelID, formatPollResults(closed))
	})
}

func (p *PollCommands) handleVote(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	if len(args) != 1 {
		discord.Reply(s, m, "Usage: `!vote <number>`")
		return
	}
	choice, err := strconv.Atoi(args[0])
	if err != nil {
		discord.Reply(s, m, "Vote with the option number.")
		return
	}

	poll, err := p.polls.Vote(m.GuildID, m.Author.ID, choice)
	if err != nil {
		discord.Reply(s, m, pollErrorMessage(err))
		return
	}
	discord.Replyf(s, m, "🗳️ %s voted **%s** (%d votes in).",
		displayNameOf(m), poll.Options[choice-1], poll.TotalVotes())
}

func (p *PollCommands) handleClose(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	poll, err := p.polls.Close(m.GuildID)
	if err != nil {
		discord.Reply(s, m, pollErrorMessage(err))
		return
	}
	discord.Reply(s, m, formatPollResults(poll))
}

// pollErrorMessage maps a games poll error to the chat reply.
func pollErrorMessage(err error) string {
	switch {
	case errors.Is(err, games.ErrPollActive):
		return "A poll is already running. `!pollclose` it first."
	case errors.Is(err, games.ErrNoPoll):
		return "No poll is running. Start one with `!poll`."
	case errors.Is(err, games.ErrBadOption):
		return "That option doesn't exist. Check the numbers above."
	case errors.Is(err, games.ErrTooManyOpts):
		return "Polls take 2 to 9 options."
	default:
		return "Poll bookkeeping failed. Check the logs."
	}
}

// formatPollResults renders the final tally with bars and a crown on
// the winning option(s).
func formatPollResults(poll *games.Poll) string {
	results := poll.Results()
	total := poll.TotalVotes()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **%s** — final results (%d votes):\n", poll.Question, total)
	for _, r := range results {
		line := fmt.Sprintf("%s %s — %d", renderBar(r.Votes, total), r.Label, r.Votes)
		if r.Winner {
			line += " 👑"
		}
		sb.WriteString(line + "\n")
	}
	if total == 0 {
		sb.WriteString("Nobody voted. Tough crowd.")
	}
	return sb.String()
}

// renderBar draws a fixed-width vote bar.
func renderBar(votes, total int) string {
	filled := 0
	if total > 0 {
		filled = votes * barWidth / total
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
