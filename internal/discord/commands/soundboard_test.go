package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/voice"
)

type stubPlayer struct {
	played []string
	err    error
}

func (p *stubPlayer) Play(_ context.Context, path string) error {
	p.played = append(p.played, path)
	return p.err
}

type stubJoiner struct {
	guildID   string
	channelID string
	err       error
}

func (j *stubJoiner) Join(guildID, channelID string, _ voice.FrameSink) error {
	j.guildID = guildID
	j.channelID = channelID
	return j.err
}

func (j *stubJoiner) Leave() error { return nil }

type nopSink struct{}

func (nopSink) PushFrame(_, _ string, _ []byte) {}

func (nopSink) EndStream(_ string) {}

// voiceSession builds a session whose state has the author sitting in a
// voice channel, so voiceChannelOf can resolve it.
func voiceSession(t *testing.T, guildID, userID, channelID string) *discordgo.Session {
	t.Helper()
	s := &discordgo.Session{State: discordgo.NewState()}
	err := s.State.GuildAdd(&discordgo.Guild{
		ID: guildID,
		VoiceStates: []*discordgo.VoiceState{
			{UserID: userID, ChannelID: channelID},
		},
	})
	if err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	return s
}

func soundMessage(guildID, userID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			GuildID:   guildID,
			ChannelID: "text-1",
			Author:    &discordgo.User{ID: userID},
		},
	}
}

func TestSoundCommands_PlayJoinsInvokerChannel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "horn.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	player := &stubPlayer{}
	joiner := &stubJoiner{}
	sc := NewSoundCommands(dir, nil, player, joiner, nopSink{})

	s := voiceSession(t, "g1", "u1", "vc-7")
	sc.play(s, soundMessage("g1", "u1"), path)

	if joiner.guildID != "g1" || joiner.channelID != "vc-7" {
		t.Errorf("joined %s/%s, want g1/vc-7", joiner.guildID, joiner.channelID)
	}
	if len(player.played) != 1 || player.played[0] != path {
		t.Errorf("played = %v, want [%s]", player.played, path)
	}
}

func TestSoundCommands_RegisterAddsAliasCommands(t *testing.T) {
	t.Parallel()

	sc := NewSoundCommands(t.TempDir(), map[string]string{
		"calabacon": "calabacon.mp3",
		"ench":      "ench.mp3",
	}, &stubPlayer{}, &stubJoiner{}, nopSink{})

	router := discord.NewRouter("!")
	sc.Register(router)

	// !sound, !sounds, plus one command per alias.
	if got := router.CommandCount(); got != 4 {
		t.Errorf("CommandCount() = %d, want 4", got)
	}
}

func TestSoundCommands_AliasCommandPlaysMappedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "calabacon.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	player := &stubPlayer{}
	joiner := &stubJoiner{}
	sc := NewSoundCommands(dir, map[string]string{"calabacon": "calabacon.mp3"}, player, joiner, nopSink{})

	router := discord.NewRouter("!")
	sc.Register(router)

	s := voiceSession(t, "g1", "u1", "vc-7")
	m := soundMessage("g1", "u1")
	m.Content = "!calabacon"
	router.HandleMessage(s, m)

	if len(player.played) != 1 || player.played[0] != path {
		t.Errorf("played = %v, want [%s]", player.played, path)
	}
}

func TestSoundCommands_FindPrefersAlias(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"ready.mp3", "other.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("mp3"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sc := NewSoundCommands(dir, map[string]string{"ready": "other.mp3"}, &stubPlayer{}, &stubJoiner{}, nopSink{})

	path, ok := sc.find("ready")
	if !ok {
		t.Fatal("find(ready) = not found")
	}
	if want := filepath.Join(dir, "other.mp3"); path != want {
		t.Errorf("find(ready) = %q, want alias target %q", path, want)
	}
}
