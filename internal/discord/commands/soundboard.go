package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/voice"
)

// playTimeout bounds one soundboard playback.
const playTimeout = time.Minute

// soundExtensions are the file types the soundboard will pick up.
var soundExtensions = map[string]bool{
	".mp3": true,
	".ogg": true,
	".wav": true,
}

// SoundCommands handles the soundboard: !sound <name>, !sounds, and one
// shortcut command per configured alias (!calabacon, !ench, ...). The
// bot joins the invoker's voice channel before playing, so nobody has
// to start a recording just to drop a sound.
type SoundCommands struct {
	dir     string
	aliases map[string]string
	player  Player
	voice   VoiceJoiner
	sink    voice.FrameSink
}

// NewSoundCommands creates a SoundCommands handler. aliases maps a
// command name to a file inside dir.
func NewSoundCommands(dir string, aliases map[string]string, player Player, joiner VoiceJoiner, sink voice.FrameSink) *SoundCommands {
	return &SoundCommands{dir: dir, aliases: aliases, player: player, voice: joiner, sink: sink}
}

// Register registers the soundboard commands with the router, including
// one command per alias.
func (sc *SoundCommands) Register(router *discord.Router) {
	router.RegisterCommand("sound", sc.handleSound)
	router.RegisterCommand("sounds", sc.handleList)

	for name, file := range sc.aliases {
		path := filepath.Join(sc.dir, file)
		router.RegisterCommand(name, func(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
			sc.play(s, m, path)
		})
	}
}

// list returns the available sound names, without extensions.
func (sc *SoundCommands) list() []string {
	entries, err := os.ReadDir(sc.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if soundExtensions[ext] {
			names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	sort.Strings(names)
	return names
}

// find resolves a sound name to its file path. Aliases win over
// directory entries.
func (sc *SoundCommands) find(name string) (string, bool) {
	name = strings.ToLower(name)
	if file, ok := sc.aliases[name]; ok {
		return filepath.Join(sc.dir, file), true
	}
	entries, err := os.ReadDir(sc.dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if soundExtensions[ext] && strings.ToLower(base) == name {
			return filepath.Join(sc.dir, e.Name()), true
		}
	}
	return "", false
}

// play joins the invoker's voice channel and plays the file there.
func (sc *SoundCommands) play(s *discordgo.Session, m *discordgo.MessageCreate, path string) {
	if _, err := os.Stat(path); err != nil {
		slog.Warn("commands: sound file missing", "path", path)
		discord.Reply(s, m, "That sound's file is missing.")
		return
	}
	if !joinCallerChannel(s, m, sc.voice, sc.sink) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	if err := sc.player.Play(ctx, path); err != nil {
		slog.Error("commands: sound playback failed", "path", path, "error", err)
		discord.Reply(s, m, "Playback failed.")
	}
}

func (sc *SoundCommands) handleSound(s *discordgo.Session, m *discordgo.MessageCreate, args []string, _ string) {
	if len(args) != 1 {
		discord.Reply(s, m, "Usage: `!sound <name>` — `!sounds` for the list.")
		return
	}

	path, ok := sc.find(args[0])
	if !ok {
		discord.Replyf(s, m, "No sound named %q. `!sounds` for the list.", args[0])
		return
	}
	sc.play(s, m, path)
}

func (sc *SoundCommands) handleList(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	names := sc.list()
	for name := range sc.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	names = dedupe(names)

	if len(names) == 0 {
		discord.Reply(s, m, "The soundboard is empty.")
		return
	}
	discord.Reply(s, m, fmt.Sprintf("🔊 Sounds: `%s`", strings.Join(names, "` `")))
}

// dedupe removes adjacent duplicates from a sorted slice.
func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
