// Package config provides the configuration schema and loader for the
// bot.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to the slog level. Unknown values map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validLLMProviders lists the provider names the ai package accepts.
var validLLMProviders = []string{"groq", "openai", "ollama"}

// validLanguages lists the flavor-text languages with prompt sets.
var validLanguages = []string{"en-us", "pt-br"}

// Config is the root configuration structure. It is typically loaded
// from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Clips   ClipsConfig   `yaml:"clips"`
	Sounds  SoundsConfig  `yaml:"sounds"`
	Data    DataConfig    `yaml:"data"`
	LLM     LLMConfig     `yaml:"llm"`
	TTS     TTSConfig     `yaml:"tts"`
}

// ServerConfig holds the operational HTTP endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for /healthz, /readyz and /metrics
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the bot's Discord credentials and chat settings.
type DiscordConfig struct {
	// Token is the bot token. Falls back to the DISCORD_TOKEN
	// environment variable when empty.
	Token string `yaml:"token"`

	// GuildID optionally pins the bot to one guild.
	GuildID string `yaml:"guild_id"`

	// CommandPrefix is the chat command prefix. Default: "!".
	CommandPrefix string `yaml:"command_prefix"`

	// AdminRoleID gates recording control and bet resolution. Empty
	// means everyone qualifies.
	AdminRoleID string `yaml:"admin_role_id"`
}

// ClipsConfig holds the voice capture and export settings.
type ClipsConfig struct {
	// OutputDir is where exported clips land. Default: "clips".
	OutputDir string `yaml:"output_dir"`

	// CooldownSeconds is the per-guild wait between exports. Default: 30.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// RetentionSeconds is how much recent audio a clip covers. Default: 60.
	RetentionSeconds int `yaml:"retention_seconds"`

	// MaxUploadMB is the Discord attachment budget. Default: 25.
	MaxUploadMB int `yaml:"max_upload_mb"`

	// FFmpegPath is the transcoder binary. Default: "ffmpeg" from PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// Cooldown returns the export cooldown as a duration.
func (c ClipsConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Retention returns the capture window as a duration.
func (c ClipsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// MaxUploadBytes returns the attachment budget in bytes.
func (c ClipsConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// SoundsConfig holds the soundboard settings.
type SoundsConfig struct {
	// Dir is the directory of soundboard clips. Default: "sounds".
	Dir string `yaml:"dir"`

	// Aliases maps extra command names to files inside Dir, so
	// "calabacon: calabacon.mp3" makes !calabacon play that clip.
	Aliases map[string]string `yaml:"aliases"`
}

// DataConfig holds local persistence settings.
type DataConfig struct {
	// Dir is where the JSON datasets (bet ledger, quotes, account
	// links) live. Default: "data".
	Dir string `yaml:"dir"`
}

// LLMConfig selects the flavor-text LLM backend.
type LLMConfig struct {
	// Provider is one of "groq", "openai", "ollama". Empty disables
	// LLM flavor text; roasts fall back to canned lines.
	Provider string `yaml:"provider"`

	// Model is the provider-specific model name.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. Falls back to the
	// GROQ_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Language selects the flavor-text language ("en-us", "pt-br").
	// Default: "en-us".
	Language string `yaml:"language"`
}

// TTSConfig holds the !tts speech synthesis settings.
type TTSConfig struct {
	// APIKey authenticates against the OpenAI audio API. Falls back to
	// the OPENAI_API_KEY environment variable when empty. Empty
	// disables !tts.
	APIKey string `yaml:"api_key"`

	// Voice selects the synthesis voice. Default: "onyx".
	Voice string `yaml:"voice"`
}

// Validate checks that cfg contains a coherent set of values. It
// returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required (or set DISCORD_TOKEN)"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Clips.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("clips.cooldown_seconds %d must not be negative", cfg.Clips.CooldownSeconds))
	}
	if cfg.Clips.RetentionSeconds <= 0 {
		errs = append(errs, fmt.Errorf("clips.retention_seconds %d must be positive", cfg.Clips.RetentionSeconds))
	}
	if cfg.Clips.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("clips.max_upload_mb %d must be positive", cfg.Clips.MaxUploadMB))
	}

	if cfg.LLM.Provider != "" {
		if !slices.Contains(validLLMProviders, cfg.LLM.Provider) {
			errs = append(errs, fmt.Errorf("llm.provider %q is invalid; valid values: groq, openai, ollama", cfg.LLM.Provider))
		}
		if cfg.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required when llm.provider is set"))
		}
	}
	if cfg.LLM.Language != "" && !slices.Contains(validLanguages, cfg.LLM.Language) {
		slog.Warn("unknown flavor-text language; falling back to en-us",
			"language", cfg.LLM.Language,
			"known", validLanguages,
		)
	}

	return errors.Join(errs...)
}
