package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/ai"
	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/voice"
)

// ttsTimeout bounds synthesis plus playback of one !tts request.
const ttsTimeout = 2 * time.Minute

// Synthesizer turns text into an MP3 file. Implemented by ai.Speaker.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
}

// Player plays an audio file into the connected voice channel.
// Implemented by voice.Manager.
type Player interface {
	Play(ctx context.Context, path string) error
}

// TTSCommands handles !tts. The bot joins the invoker's voice channel
// before speaking.
type TTSCommands struct {
	speech Synthesizer
	player Player
	voice  VoiceJoiner
	sink   voice.FrameSink
}

// NewTTSCommands creates a TTSCommands handler. speech may be nil when
// no TTS provider is configured.
func NewTTSCommands(speech Synthesizer, player Player, joiner VoiceJoiner, sink voice.FrameSink) *TTSCommands {
	return &TTSCommands{speech: speech, player: player, voice: joiner, sink: sink}
}

// Register registers the tts command with the router.
func (t *TTSCommands) Register(router *discord.Router) {
	router.RegisterCommand("tts", t.handleTTS)
}

func (t *TTSCommands) handleTTS(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, raw string) {
	if t.speech == nil {
		discord.Reply(s, m, "TTS is not configured.")
		return
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		discord.Reply(s, m, "Usage: `!tts <something to say>`")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ttsTimeout)
	defer cancel()

	path := filepath.Join(os.TempDir(), "roshan-tts-"+m.ID+".mp3")
	defer os.Remove(path)

	if err := t.speech.Synthesize(ctx, text, path); err != nil {
		if errors.Is(err, ai.ErrSpeechTooLong) {
			discord.Replyf(s, m, "Keep it under %d characters.", ai.MaxSpeechChars)
			return
		}
		slog.Error("commands: tts synthesis failed", "error", err)
		discord.Reply(s, m, "Speech synthesis failed.")
		return
	}

	if !joinCallerChannel(s, m, t.voice, t.sink) {
		return
	}
	if err := t.player.Play(ctx, path); err != nil {
		slog.Error("commands: tts playback failed", "error", err)
		discord.Reply(s, m, "Playback failed.")
	}
}
