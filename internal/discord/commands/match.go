package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/ai"
	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/observe"
	"github.com/roshanbot/roshan/internal/stats"
)

// statsTimeout bounds one OpenDota round trip.
const statsTimeout = 15 * time.Second

// DotaClient fetches match data. Implemented by stats.Client.
type DotaClient interface {
	LastMatch(ctx context.Context, accountID int64) (stats.RecentMatch, error)
	HeroName(ctx context.Context, heroID int) (string, error)
	Player(ctx context.Context, accountID int64) (stats.Profile, error)
}

// LinkStore persists the Discord-to-Steam account links. Implemented by
// store.File.
type LinkStore interface {
	Load(v any) error
	Save(v any) error
}

type linksDoc struct {
	Links map[string]int64 `json:"links"`
}

// MatchCommands handles !link, !match and !rank.
type MatchCommands struct {
	dota    DotaClient
	roaster *ai.Roaster
	metrics *observe.Metrics

	mu    sync.Mutex
	store LinkStore
	links map[string]int64
}

// NewMatchCommands creates a MatchCommands handler, loading the account
// links from the store.
func NewMatchCommands(dota DotaClient, roaster *ai.Roaster, store LinkStore, metrics *observe.Metrics) (*MatchCommands, error) {
	doc := linksDoc{}
	if err := store.Load(&doc); err != nil {
		return nil, fmt.Errorf("commands: load account links: %w", err)
	}
	if doc.Links == nil {
		doc.Links = make(map[string]int64)
	}
	return &MatchCommands{
		dota:    dota,
		roaster: roaster,
		metrics: metrics,
		store:   store,
		links:   doc.Links,
	}, nil
}

// Register registers the stats commands with the router.
func (mc *MatchCommands) Register(router *discord.Router) {
	router.RegisterCommand("link", mc.handleLink)
	router.RegisterCommand("match", mc.handleMatch)
	router.RegisterCommand("rank", mc.handleRank)
}

func (mc *MatchCommands) handleLink(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	if len(args) != 1 {
		discord.Reply(s, m, "Usage: `!link <steam id>` — your 64-bit or 32-bit Steam ID.")
		return
	}
	accountID, err := stats.Steam32(args[0])
	if err != nil {
		discord.Reply(s, m, "That doesn't look like a numeric Steam ID.")
		return
	}

	mc.mu.Lock()
	mc.links[m.Author.ID] = accountID
	err = mc.store.Save(linksDoc{Links: mc.links})
	mc.mu.Unlock()
	if err != nil {
		slog.Error("commands: save account links", "error", err)
		discord.Reply(s, m, "Couldn't save the link. Try again.")
		return
	}
	discord.Replyf(s, m, "🔗 Linked %s to account `%d`. `!match` away.", displayNameOf(m), accountID)
}

// accountFor resolves the account ID for a command: an explicit ID
// argument wins, otherwise the author's linked account.
func (mc *MatchCommands) accountFor(m *discordgo.MessageCreate, args []string) (int64, error) {
	if len(args) > 0 {
		return stats.Steam32(args[0])
	}
	mc.mu.Lock()
	accountID, ok := mc.links[m.Author.ID]
	mc.mu.Unlock()
	if !ok {
		return 0, errors.New("commands: no linked account")
	}
	return accountID, nil
}

func (mc *MatchCommands) handleMatch(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	accountID, err := mc.accountFor(m, args)
	if err != nil {
		discord.Reply(s, m, "Link your account with `!link <steam id>` or pass one: `!match <steam id>`.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	match, err := mc.dota.LastMatch(ctx, accountID)
	if err != nil {
		mc.metrics.RecordProviderRequest(ctx, "opendota", "error")
		if errors.Is(err, stats.ErrNoMatches) {
			discord.Reply(s, m, "No recent matches. Private match history, or grass was touched.")
			return
		}
		slog.Error("commands: fetch last match", "account_id", accountID, "error", err)
		discord.Reply(s, m, "OpenDota isn't answering. Try again in a bit.")
		return
	}
	mc.metrics.RecordProviderRequest(ctx, "opendota", "ok")

	heroName, err := mc.dota.HeroName(ctx, match.HeroID)
	if err != nil {
		heroName = fmt.Sprintf("Hero %d", match.HeroID)
	}

	summary := formatMatch(match, heroName)
	if line, err := mc.roaster.Commentary(ctx, summary); err == nil && line != "" {
		summary += "\n💬 " + line
	}
	discord.Reply(s, m, summary)
}

func (mc *MatchCommands) handleRank(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	accountID, err := mc.accountFor(m, args)
	if err != nil {
		discord.Reply(s, m, "Link your account with `!link <steam id>` or pass one: `!rank <steam id>`.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	profile, err := mc.dota.Player(ctx, accountID)
	if err != nil {
		mc.metrics.RecordProviderRequest(ctx, "opendota", "error")
		slog.Error("commands: fetch player", "account_id", accountID, "error", err)
		discord.Reply(s, m, "OpenDota isn't answering. Try again in a bit.")
		return
	}
	mc.metrics.RecordProviderRequest(ctx, "opendota", "ok")

	name := profile.Profile.PersonaName
	if name == "" {
		name = fmt.Sprintf("Account %d", accountID)
	}
	discord.Replyf(s, m, "🏅 **%s** — %s", name, stats.RankName(profile.RankTier))
}

// formatMatch renders one match result line.
func formatMatch(match stats.RecentMatch, heroName string) string {
	outcome := "🟢 **WIN**"
	if !match.Won() {
		outcome = "🔴 **LOSS**"
	}
	return fmt.Sprintf("%s on %s — %s KDA, %s, %s\nhttps://www.opendota.com/matches/%d",
		outcome, heroName, match.KDA(), match.DurationString(),
		stats.GameModeName(match.GameMode), match.MatchID)
}
