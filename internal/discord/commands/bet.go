package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
)

var betUsage = "Usage: `!bet place <amount> <yes|no>` · `!bet cancel` · `!bet balance` · " +
	"`!bet list` · `!bet top` · `!bet resolve <yes|no>` (admin)"

// BetCommands handles the !bet command family.
type BetCommands struct {
	bets  *games.Bets
	perms *discord.PermissionChecker
}

// NewBetCommands creates a BetCommands handler.
func NewBetCommands(bets *games.Bets, perms *discord.PermissionChecker) *BetCommands {
	return &BetCommands{bets: bets, perms: perms}
}

// Register registers the bet commands with the router.
func (b *BetCommands) Register(router *discord.Router) {
	router.RegisterCommand("bet", b.handleBet)
}

func (b *BetCommands) handleBet(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	if len(args) == 0 {
		discord.Reply(s, m, betUsage)
		return
	}

	switch strings.ToLower(args[0]) {
	case "place":
		b.handlePlace(s, m, args[1:])
	case "cancel":
		b.handleCancel(s, m)
	case "balance", "points":
		b.handleBalance(s, m)
	case "list", "active":
		b.handleList(s, m)
	case "top", "leaderboard":
		b.handleTop(s, m)
	case "resolve":
		b.handleResolve(s, m, args[1:])
	default:
		discord.Reply(s, m, betUsage)
	}
}

func (b *BetCommands) handlePlace(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) != 2 {
		discord.Reply(s, m, "Usage: `!bet place <amount> <yes|no>` — will we win the next match?")
		return
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		discord.Reply(s, m, "The amount has to be a number.")
		return
	}

	if err := b.bets.Place(m.Author.ID, displayNameOf(m), amount, args[1]); err != nil {
		discord.Reply(s, m, betErrorMessage(err))
		return
	}
	discord.Replyf(s, m, "💰 %s bet **%d** points on **%s**. Resolves with `!bet resolve`.",
		displayNameOf(m), amount, strings.ToLower(args[1]))
}

func (b *BetCommands) handleCancel(s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := b.bets.Cancel(m.Author.ID); err != nil {
		discord.Reply(s, m, betErrorMessage(err))
		return
	}
	discord.Reply(s, m, "Bet cancelled. Coward.")
}

func (b *BetCommands) handleBalance(s *discordgo.Session, m *discordgo.MessageCreate) {
	pts, err := b.bets.Balance(m.Author.ID, displayNameOf(m))
	if err != nil {
		discord.Reply(s, m, betErrorMessage(err))
		return
	}
	discord.Replyf(s, m, "💰 %s has **%d** points.", displayNameOf(m), pts)
}

func (b *BetCommands) handleList(s *discordgo.Session, m *discordgo.MessageCreate) {
	active := b.bets.Active()
	if len(active) == 0 {
		discord.Reply(s, m, "No open bets. Start one with `!bet place`.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Open bets on the next match:**\n")
	for _, bet := range active {
		fmt.Fprintf(&sb, "· %s — %d on %s\n", bet.DisplayName, bet.Amount, bet.Choice)
	}
	discord.Reply(s, m, sb.String())
}

func (b *BetCommands) handleTop(s *discordgo.Session, m *discordgo.MessageCreate) {
	entries := b.bets.Leaderboard(10)
	if len(entries) == 0 {
		discord.Reply(s, m, "Nobody has gambled yet.")
		return
	}
	discord.Reply(s, m, formatLeaderboard(entries))
}

func (b *BetCommands) handleResolve(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.perms.IsAdmin(m) {
		discord.Reply(s, m, "Only admins can resolve bets.")
		return
	}
	if len(args) != 1 {
		discord.Reply(s, m, "Usage: `!bet resolve <yes|no>` — did we win?")
		return
	}

	settled, err := b.bets.Resolve(args[0])
	if err != nil {
		discord.Reply(s, m, betErrorMessage(err))
		return
	}
	discord.Reply(s, m, formatSettled(settled, strings.ToLower(args[0])))
}

// betErrorMessage maps a games betting error to the chat reply.
func betErrorMessage(err error) string {
	switch {
	case errors.Is(err, games.ErrBetExists):
		return "You already have a bet riding. `!bet cancel` it first."
	case errors.Is(err, games.ErrNoBet):
		return "You have no open bet."
	case errors.Is(err, games.ErrNoActiveBets):
		return "There are no open bets to resolve."
	case errors.Is(err, games.ErrInsufficientPoints):
		return "You can't afford that. Check `!bet balance`."
	case errors.Is(err, games.ErrBadChoice):
		return "Pick a side: `yes` or `no`."
	case errors.Is(err, games.ErrBadAmount):
		return "The amount has to be a positive number."
	default:
		return "Bet bookkeeping failed. Check the logs."
	}
}

// formatSettled renders the resolve announcement.
func formatSettled(settled []games.Settled, outcome string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Bets resolved: **%s**\n", outcome)
	for _, s := range settled {
		if s.Won {
			fmt.Fprintf(&sb, "🟢 %s wins %d points\n", s.DisplayName, s.Amount)
		} else {
			fmt.Fprintf(&sb, "🔴 %s loses %d points\n", s.DisplayName, s.Amount)
		}
	}
	return sb.String()
}

// formatLeaderboard renders the top-10 points ranking with medals for
// the podium.
func formatLeaderboard(entries []games.LeaderboardEntry) string {
	medals := []string{"🥇", "🥈", "🥉"}

	var sb strings.Builder
	sb.WriteString("**Points leaderboard:**\n")
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s — %d points (%dW/%dL)\n", rank, e.DisplayName, e.Points, e.Wins, e.Losses)
	}
	return sb.String()
}
