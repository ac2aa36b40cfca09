package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// fallbacks and defaults, and validates the result. Useful in tests
// where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets from the environment when the YAML left them
// empty, so tokens can stay out of config files.
func applyEnv(cfg *Config) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.TTS.APIKey == "" {
		cfg.TTS.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Discord.CommandPrefix == "" {
		cfg.Discord.CommandPrefix = "!"
	}
	if cfg.Clips.OutputDir == "" {
		cfg.Clips.OutputDir = "clips"
	}
	if cfg.Clips.CooldownSeconds == 0 {
		cfg.Clips.CooldownSeconds = 30
	}
	if cfg.Clips.RetentionSeconds == 0 {
		cfg.Clips.RetentionSeconds = 60
	}
	if cfg.Clips.MaxUploadMB == 0 {
		cfg.Clips.MaxUploadMB = 25
	}
	if cfg.Clips.FFmpegPath == "" {
		cfg.Clips.FFmpegPath = "ffmpeg"
	}
	if cfg.Sounds.Dir == "" {
		cfg.Sounds.Dir = "sounds"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.LLM.Language == "" {
		cfg.LLM.Language = "en-us"
	}
	if cfg.TTS.Voice == "" {
		cfg.TTS.Voice = "onyx"
	}
}
