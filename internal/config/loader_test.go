package config_test

import (
	"strings"
	"testing"

	"github.com/roshanbot/roshan/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()
	yaml := `
discord:
  token: abc
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr default: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level default: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("command_prefix default: got %q, want %q", cfg.Discord.CommandPrefix, "!")
	}
	if cfg.Clips.CooldownSeconds != 30 || cfg.Clips.RetentionSeconds != 60 || cfg.Clips.MaxUploadMB != 25 {
		t.Errorf("clips defaults: got %+v", cfg.Clips)
	}
	if cfg.Clips.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg_path default: got %q, want %q", cfg.Clips.FFmpegPath, "ffmpeg")
	}
	if cfg.Data.Dir != "data" || cfg.Sounds.Dir != "sounds" {
		t.Errorf("dir defaults: data=%q sounds=%q", cfg.Data.Dir, cfg.Sounds.Dir)
	}
	if cfg.LLM.Language != "en-us" {
		t.Errorf("language default: got %q, want %q", cfg.LLM.Language, "en-us")
	}
	if cfg.TTS.Voice != "onyx" {
		t.Errorf("voice default: got %q, want %q", cfg.TTS.Voice, "onyx")
	}
}

func TestLoadFromReader_ExplicitValuesKept(t *testing.T) {
	t.Parallel()
	yaml := `
discord:
  token: abc
  command_prefix: "?"
clips:
  cooldown_seconds: 10
  retention_seconds: 120
sounds:
  aliases:
    calabacon: calabacon.mp3
llm:
  provider: ollama
  model: llama3
  language: pt-br
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discord.CommandPrefix != "?" {
		t.Errorf("command_prefix: got %q, want %q", cfg.Discord.CommandPrefix, "?")
	}
	if cfg.Clips.CooldownSeconds != 10 || cfg.Clips.RetentionSeconds != 120 {
		t.Errorf("clips: got %+v", cfg.Clips)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Language != "pt-br" {
		t.Errorf("llm: got %+v", cfg.LLM)
	}
	if cfg.Sounds.Aliases["calabacon"] != "calabacon.mp3" {
		t.Errorf("sound aliases: got %+v", cfg.Sounds.Aliases)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
discord:
  token: abc
clipz:
  cooldown_seconds: 10
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestLoadFromReader_EnvFallbacks(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GROQ_API_KEY", "env-groq")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	yaml := `
llm:
  provider: groq
  model: llama-3.3-70b-versatile
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Errorf("token: got %q, want env fallback", cfg.Discord.Token)
	}
	if cfg.LLM.APIKey != "env-groq" {
		t.Errorf("llm api key: got %q, want env fallback", cfg.LLM.APIKey)
	}
	if cfg.TTS.APIKey != "env-openai" {
		t.Errorf("tts api key: got %q, want env fallback", cfg.TTS.APIKey)
	}
}

func TestLoadFromReader_YAMLWinsOverEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")

	yaml := `
discord:
  token: yaml-token
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discord.Token != "yaml-token" {
		t.Errorf("token: got %q, want yaml value to win", cfg.Discord.Token)
	}
}
