package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/observe"
)

// jokeTimeout bounds one joke API round trip.
const jokeTimeout = 10 * time.Second

// JokeSource fetches one random joke. Implemented by jokes.Client.
type JokeSource interface {
	Random(ctx context.Context) (string, error)
}

// JokeCommands handles !joke.
type JokeCommands struct {
	source  JokeSource
	metrics *observe.Metrics
}

// NewJokeCommands creates a JokeCommands handler.
func NewJokeCommands(source JokeSource, metrics *observe.Metrics) *JokeCommands {
	return &JokeCommands{source: source, metrics: metrics}
}

// Register registers the joke command with the router.
func (j *JokeCommands) Register(router *discord.Router) {
	router.RegisterCommand("joke", j.handleJoke)
}

func (j *JokeCommands) handleJoke(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	ctx, cancel := context.WithTimeout(context.Background(), jokeTimeout)
	defer cancel()

	joke, err := j.source.Random(ctx)
	if err != nil {
		j.metrics.RecordProviderRequest(ctx, "chucknorris", "error")
		slog.Error("commands: fetch joke", "error", err)
		discord.Reply(s, m, "The joke well is dry.")
		return
	}
	j.metrics.RecordProviderRequest(ctx, "chucknorris", "ok")
	discord.Reply(s, m, "🥋 "+joke)
}
