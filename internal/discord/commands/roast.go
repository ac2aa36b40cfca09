package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/ai"
	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/observe"
)

// roastTimeout bounds one roast generation.
const roastTimeout = 30 * time.Second

// RoastCommands handles !roast.
type RoastCommands struct {
	roaster *ai.Roaster
	metrics *observe.Metrics
}

// NewRoastCommands creates a RoastCommands handler.
func NewRoastCommands(roaster *ai.Roaster, metrics *observe.Metrics) *RoastCommands {
	return &RoastCommands{roaster: roaster, metrics: metrics}
}

// Register registers the roast command with the router.
func (r *RoastCommands) Register(router *discord.Router) {
	router.RegisterCommand("roast", r.handleRoast)
}

func (r *RoastCommands) handleRoast(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, raw string) {
	target := strings.TrimSpace(raw)
	if len(m.Mentions) > 0 {
		target = m.Mentions[0].Username
	}
	if target == "" {
		target = displayNameOf(m) // asked for it
	}

	ctx, cancel := context.WithTimeout(context.Background(), roastTimeout)
	defer cancel()

	out, err := r.roaster.Roast(ctx, target, "")
	if err != nil {
		r.metrics.RecordProviderRequest(ctx, "llm", "error")
		slog.Error("commands: roast failed", "target", target, "error", err)
		discord.Reply(s, m, "The roast kitchen is closed.")
		return
	}
	r.metrics.RecordProviderRequest(ctx, "llm", "ok")
	discord.Reply(s, m, "🔥 "+out)
}
