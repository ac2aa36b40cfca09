package commands

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/games"
)

// QuoteCommands handles the !quote command family.
type QuoteCommands struct {
	quotes *games.Quotes
	rng    *rand.Rand
}

// NewQuoteCommands creates a QuoteCommands handler.
func NewQuoteCommands(quotes *games.Quotes, rng *rand.Rand) *QuoteCommands {
	return &QuoteCommands{quotes: quotes, rng: rng}
}

// Register registers the quote commands with the router.
func (q *QuoteCommands) Register(router *discord.Router) {
	router.RegisterCommand("quote", q.handleQuote)
}

func (q *QuoteCommands) handleQuote(s *discordgo.Session, m *discordgo.MessageCreate, args []string, raw string) {
	switch {
	case len(args) == 0:
		q.random(s, m)
	case args[0] == "add":
		q.add(s, m, raw)
	default:
		if n, err := strconv.Atoi(args[0]); err == nil {
			q.byNumber(s, m, n)
			return
		}
		discord.Reply(s, m, "Usage: `!quote` · `!quote <number>` · `!quote add <text> - <author>`")
	}
}

func (q *QuoteCommands) random(s *discordgo.Session, m *discordgo.MessageCreate) {
	quote, n, err := q.quotes.Random(q.rng)
	if err != nil {
		discord.Reply(s, m, quoteErrorMessage(err))
		return
	}
	q.send(s, m, quote, n)
}

func (q *QuoteCommands) add(s *discordgo.Session, m *discordgo.MessageCreate, raw string) {
	// Strip the "add" subcommand, keep the rest verbatim.
	text, author := games.ParseQuoteInput(raw[len("add"):])
	n, err := q.quotes.Add(text, author, m.Author.ID)
	if err != nil {
		if errors.Is(err, games.ErrEmptyQuote) {
			discord.Reply(s, m, "Usage: `!quote add <text> - <author>`")
			return
		}
		slog.Error("commands: save quote", "error", err)
		discord.Reply(s, m, "Couldn't save the quote.")
		return
	}
	discord.Replyf(s, m, "📖 Saved as quote #%d.", n)
}

func (q *QuoteCommands) byNumber(s *discordgo.Session, m *discordgo.MessageCreate, n int) {
	quote, err := q.quotes.Get(n)
	if err != nil {
		discord.Reply(s, m, "That quote doesn't exist.")
		return
	}
	q.send(s, m, quote, n)
}

func (q *QuoteCommands) send(s *discordgo.Session, m *discordgo.MessageCreate, quote games.Quote, n int) {
	line := "📖 #" + strconv.Itoa(n) + ": \"" + quote.Text + "\""
	if quote.Author != "" {
		line += " — " + quote.Author
	}
	discord.Reply(s, m, line)
}

// quoteErrorMessage maps a games quote error to the chat reply.
func quoteErrorMessage(err error) string {
	if errors.Is(err, games.ErrNoQuotes) {
		return "No quotes yet. Immortalize someone with `!quote add`."
	}
	return "Quote bookkeeping failed. Check the logs."
}
