// Package voice manages the bot's single voice-channel connection: it
// joins and leaves channels, runs the capture receive loop (Opus demux
// and decode into the frame sink), and plays audio files back into the
// channel for the soundboard and TTS commands.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Decoder converts an audio file into raw PCM at the capture format.
// Implemented by the ffmpeg transcoder.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]byte, error)
}

// ErrNotConnected is returned by playback when the bot is not in a
// voice channel.
var ErrNotConnected = errors.New("voice: not connected to a voice channel")

// Manager owns at most one voice connection at a time (the bot serves a
// single guild). Joining a different channel moves the connection and
// restarts capture there.
//
// Manager is safe for concurrent use.
type Manager struct {
	session *discordgo.Session
	dec     Decoder

	mu        sync.Mutex
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string
	recv      *receiver

	// playMu serializes playback so overlapping soundboard triggers
	// queue instead of interleaving frames.
	playMu sync.Mutex
}

// NewManager creates a Manager on the given gateway session.
func NewManager(session *discordgo.Session, dec Decoder) *Manager {
	return &Manager{session: session, dec: dec}
}

// Join connects to the given voice channel and starts feeding decoded
// frames into sink. Joining the channel the bot is already in is a
// no-op; joining a different one tears down the old receiver first.
func (m *Manager) Join(guildID, channelID string, sink FrameSink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vc != nil && m.guildID == guildID && m.channelID == channelID {
		return nil
	}

	if m.recv != nil {
		m.recv.stop()
		m.recv = nil
	}

	// mute=false (we play audio), deaf=false (we capture audio).
	vc, err := m.session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return fmt.Errorf("voice: join channel %q: %w", channelID, err)
	}

	m.vc = vc
	m.guildID = guildID
	m.channelID = channelID
	m.recv = newReceiver(vc, sink, m.displayName)

	slog.Info("voice: joined channel", "guild_id", guildID, "channel_id", channelID)
	return nil
}

// Leave stops capture and disconnects. Safe to call when not connected.
func (m *Manager) Leave() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vc == nil {
		return nil
	}

	if m.recv != nil {
		m.recv.stop()
		m.recv = nil
	}

	err := m.vc.Disconnect()
	m.vc = nil
	m.guildID = ""
	m.channelID = ""

	if err != nil {
		return fmt.Errorf("voice: disconnect: %w", err)
	}
	slog.Info("voice: left channel")
	return nil
}

// Connected reports whether the bot currently holds a voice connection.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vc != nil
}

// Channel returns the connected guild and channel, both empty when
// disconnected.
func (m *Manager) Channel() (guildID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guildID, m.channelID
}

// displayName resolves a user's guild nickname or username from the
// session state cache. Returns "" when the user is unknown.
func (m *Manager) displayName(userID string) string {
	m.mu.Lock()
	guildID := m.guildID
	m.mu.Unlock()
	if guildID == "" {
		return ""
	}

	member, err := m.session.State.Member(guildID, userID)
	if err != nil {
		member, err = m.session.GuildMember(guildID, userID)
		if err != nil {
			return ""
		}
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}
