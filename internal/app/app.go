// Package app wires all subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the gateway and operational HTTP server, and
// Shutdown tears everything down in order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/roshanbot/roshan/internal/ai"
	"github.com/roshanbot/roshan/internal/capture"
	"github.com/roshanbot/roshan/internal/clip"
	"github.com/roshanbot/roshan/internal/config"
	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/discord/commands"
	"github.com/roshanbot/roshan/internal/ffmpeg"
	"github.com/roshanbot/roshan/internal/games"
	"github.com/roshanbot/roshan/internal/health"
	"github.com/roshanbot/roshan/internal/jokes"
	"github.com/roshanbot/roshan/internal/observe"
	"github.com/roshanbot/roshan/internal/stats"
	"github.com/roshanbot/roshan/internal/store"
	"github.com/roshanbot/roshan/internal/voice"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	bot       *discord.Bot
	tracker   *capture.Tracker
	exporter  *clip.Exporter
	voiceMgr  *voice.Manager
	healthSrv *health.Server

	// logLevel, when set, lets config hot reload adjust verbosity.
	logLevel *slog.LevelVar

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLogLevelVar hands the app the level var backing the root logger so
// config hot reload can adjust verbosity.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New creates an App by wiring all subsystems together: the capture
// pipeline, the Discord gateway, chat commands, and the operational
// HTTP server. All initialisation is synchronous; the returned App is
// idle until Run is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	metrics := observe.DefaultMetrics()

	for _, dir := range []string{cfg.Data.Dir, cfg.Clips.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("app: create dir %q: %w", dir, err)
		}
	}

	// ── Capture pipeline ─────────────────────────────────────────────────
	transcoder := ffmpeg.New(ffmpeg.WithBinary(cfg.Clips.FFmpegPath))
	a.tracker = capture.NewTracker(capture.WithRetention(cfg.Clips.Retention()))
	if err := metrics.RegisterCaptureGauges(a.tracker); err != nil {
		return nil, fmt.Errorf("app: register capture gauges: %w", err)
	}
	a.exporter = clip.New(a.tracker, transcoder, cfg.Clips.OutputDir,
		clip.WithCooldown(cfg.Clips.Cooldown()),
		clip.WithMaxUploadBytes(cfg.Clips.MaxUploadBytes()),
	)

	// ── Discord gateway ──────────────────────────────────────────────────
	bot, err := discord.New(ctx, discord.Config{
		Token:         cfg.Discord.Token,
		GuildID:       cfg.Discord.GuildID,
		CommandPrefix: cfg.Discord.CommandPrefix,
		AdminRoleID:   cfg.Discord.AdminRoleID,
	})
	if err != nil {
		return nil, fmt.Errorf("app: connect discord: %w", err)
	}
	a.bot = bot
	a.closers = append(a.closers, bot.Close)

	a.voiceMgr = voice.NewManager(bot.Session(), transcoder)

	// ── Persistent datasets ──────────────────────────────────────────────
	bets, err := games.NewBets(store.NewFile(filepath.Join(cfg.Data.Dir, "bets.json")))
	if err != nil {
		return nil, fmt.Errorf("app: load bet ledger: %w", err)
	}
	quotes, err := games.NewQuotes(store.NewFile(filepath.Join(cfg.Data.Dir, "quotes.json")))
	if err != nil {
		return nil, fmt.Errorf("app: load quote book: %w", err)
	}

	// ── Flavor text ──────────────────────────────────────────────────────
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	var completer ai.Completer
	if cfg.LLM.Provider != "" {
		var llmOpts []anyllmlib.Option
		if cfg.LLM.APIKey != "" {
			llmOpts = append(llmOpts, anyllmlib.WithAPIKey(cfg.LLM.APIKey))
		}
		if cfg.LLM.BaseURL != "" {
			llmOpts = append(llmOpts, anyllmlib.WithBaseURL(cfg.LLM.BaseURL))
		}
		llm, err := ai.NewLLM(cfg.LLM.Provider, cfg.LLM.Model, llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: create llm backend: %w", err)
		}
		completer = llm
		slog.Info("llm backend ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	}
	roaster := ai.NewRoaster(completer, cfg.LLM.Language, rng)

	var speech commands.Synthesizer
	if cfg.TTS.APIKey != "" {
		speech = ai.NewSpeaker(cfg.TTS.APIKey, cfg.TTS.Voice)
		slog.Info("speech synthesis ready", "voice", cfg.TTS.Voice)
	}

	// ── Commands ─────────────────────────────────────────────────────────
	router := bot.Router()
	router.SetMetrics(metrics)
	perms := bot.Permissions()

	dashboard := discord.NewDashboard(discord.DashboardConfig{
		Session: bot.Session(),
		Data:    a.tracker,
	})
	commands.NewClipCommands(a.tracker, a.exporter, a.voiceMgr, a.tracker, perms, metrics).
		WithDashboard(dashboard).
		Register(router)
	a.closers = append(a.closers, func() error {
		dashboard.Stop()
		return nil
	})
	commands.NewBetCommands(bets, perms).Register(router)
	commands.NewPollCommands(games.NewPolls()).Register(router)
	commands.NewVoteKickCommands(games.NewVoteKicks(), perms, rng).Register(router)
	commands.NewGroupCommands(games.NewGroups(), rng).Register(router)
	commands.NewQuoteCommands(quotes, rng).Register(router)
	commands.NewRoastCommands(roaster, metrics).Register(router)
	commands.NewTTSCommands(speech, a.voiceMgr, a.voiceMgr, a.tracker).Register(router)
	commands.NewSoundCommands(cfg.Sounds.Dir, cfg.Sounds.Aliases, a.voiceMgr, a.voiceMgr, a.tracker).Register(router)
	commands.NewJokeCommands(jokes.New(), metrics).Register(router)

	matchCmds, err := commands.NewMatchCommands(
		stats.New(), roaster,
		store.NewFile(filepath.Join(cfg.Data.Dir, "links.json")),
		metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("app: load account links: %w", err)
	}
	matchCmds.Register(router)

	// ── Operational HTTP server ──────────────────────────────────────────
	h := health.New(
		health.Checker{Name: "discord", Check: bot.Check},
		health.Checker{Name: "ffmpeg", Check: transcoder.Check},
	)
	a.healthSrv = health.NewServer(cfg.Server.ListenAddr, h, metrics)

	return a, nil
}

// Bot returns the Discord gateway.
func (a *App) Bot() *discord.Bot {
	return a.bot
}

// Run blocks until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.bot.Run(ctx) })
	g.Go(func() error { return a.healthSrv.Run(ctx) })

	slog.Info("app running",
		"guild_id", a.cfg.Discord.GuildID,
		"listen_addr", a.cfg.Server.ListenAddr,
	)
	return g.Wait()
}

// ApplyConfig applies a hot-reloaded configuration. Only changes the
// [config.Diff] marks as reloadable take effect; everything else needs
// a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ClipsChanged {
		a.exporter.SetLimits(new.Clips.Cooldown(), new.Clips.MaxUploadBytes())
		slog.Info("clip limits changed",
			"cooldown", new.Clips.Cooldown(),
			"max_upload_mb", new.Clips.MaxUploadMB,
		)
	}
	if d.FlavorChanged {
		slog.Warn("llm settings changed; restart to apply")
	}
}

// Shutdown disconnects voice, stops capture, and tears down subsystems
// in reverse-init order. It respects the context deadline: if ctx
// expires, remaining closers are skipped and the context error returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.voiceMgr.Leave(); err != nil {
			slog.Warn("voice disconnect error", "err", err)
		}
		a.tracker.StopRecording()

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
