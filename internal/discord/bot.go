// Package discord provides the Discord gateway layer for the bot. It
// owns the discordgo.Session lifecycle, routes prefixed chat commands
// ("!clip", "!bet place 100 yes", …) and button interactions to
// registered handlers, and offers reply/upload helpers.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// GuildID is the target guild (the bot serves a single community).
	GuildID string `yaml:"guild_id"`

	// CommandPrefix introduces chat commands. Defaults to "!".
	CommandPrefix string `yaml:"command_prefix"`

	// AdminRoleID optionally gates recording control commands. When
	// empty, everyone may start and stop recording.
	AdminRoleID string `yaml:"admin_role_id"`
}

// Bot owns the Discord gateway connection and dispatches messages and
// interactions to the router.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	router    *Router
	perms     *PermissionChecker
	guildID   string
	closeOnce sync.Once
}

// New creates a Bot and connects to the gateway. Message content is a
// privileged intent; it must also be enabled in the developer portal.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	prefix := cfg.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}

	b := &Bot{
		router:  NewRouter(prefix),
		perms:   NewPermissionChecker(cfg.AdminRoleID),
		guildID: cfg.GuildID,
		session: session,
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.router.HandleMessage(s, m)
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.HandleInteraction(s, i)
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}

	return b, nil
}

// Session returns the underlying discordgo session for subsystems that
// need direct API access (voice joins, member lookups).
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// GuildID returns the target guild ID.
func (b *Bot) GuildID() string {
	return b.guildID
}

// Router returns the command router for registering handlers.
func (b *Bot) Router() *Router {
	return b.router
}

// Permissions returns the permission checker.
func (b *Bot) Permissions() *PermissionChecker {
	return b.perms
}

// Run blocks until ctx is cancelled. The gateway connection itself is
// event-driven; there is nothing to pump here.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("discord: bot ready", "guild_id", b.guildID, "commands", b.router.CommandCount())
	<-ctx.Done()
	return ctx.Err()
}

// Check reports gateway health. Used as a readiness probe.
func (b *Bot) Check(_ context.Context) error {
	s := b.Session()
	if s == nil || s.State == nil || s.State.User == nil {
		return fmt.Errorf("discord: gateway not connected")
	}
	return nil
}

// Close disconnects from the gateway. Safe to call more than once.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}
		slog.Info("discord: bot closed")
	})
	return closeErr
}
