package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/roshanbot/roshan/internal/clip"
	"github.com/roshanbot/roshan/internal/discord"
	"github.com/roshanbot/roshan/internal/observe"
	"github.com/roshanbot/roshan/internal/voice"
)

// exportTimeout bounds one !clip end to end, ffmpeg included.
const exportTimeout = 2 * time.Minute

// ClipRecorder controls the capture buffer. Implemented by
// capture.Tracker.
type ClipRecorder interface {
	StartRecording(guildID, channelID string)
	StopRecording()
	IsRecording() bool
	Channel() (guildID, channelID string)
}

// ClipExporter produces clips from the capture buffer. Implemented by
// clip.Exporter.
type ClipExporter interface {
	Export(ctx context.Context) (*clip.Result, error)
}

// VoiceJoiner moves the bot between voice channels. Implemented by
// voice.Manager.
type VoiceJoiner interface {
	Join(guildID, channelID string, sink voice.FrameSink) error
	Leave() error
}

// ClipCommands handles !clipstart, !clipstop and !clip.
type ClipCommands struct {
	recorder  ClipRecorder
	exporter  ClipExporter
	voice     VoiceJoiner
	sink      voice.FrameSink
	perms     *discord.PermissionChecker
	metrics   *observe.Metrics
	dashboard *discord.Dashboard
}

// NewClipCommands creates a ClipCommands handler.
func NewClipCommands(recorder ClipRecorder, exporter ClipExporter, vc VoiceJoiner, sink voice.FrameSink, perms *discord.PermissionChecker, metrics *observe.Metrics) *ClipCommands {
	return &ClipCommands{
		recorder: recorder,
		exporter: exporter,
		voice:    vc,
		sink:     sink,
		perms:    perms,
		metrics:  metrics,
	}
}

// WithDashboard attaches a live recording dashboard. The embed is
// posted into the text channel where !clipstart was issued and updated
// until !clipstop.
func (c *ClipCommands) WithDashboard(d *discord.Dashboard) *ClipCommands {
	c.dashboard = d
	return c
}

// Register registers the clip commands with the router.
func (c *ClipCommands) Register(router *discord.Router) {
	router.RegisterCommand("clipstart", c.handleStart)
	router.RegisterCommand("clipstop", c.handleStop)
	router.RegisterCommand("clip", c.handleClip)
}

func (c *ClipCommands) handleStart(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	if !c.perms.IsAdmin(m) {
		discord.Reply(s, m, "Only admins can control recording.")
		return
	}

	channelID := voiceChannelOf(s, m.GuildID, m.Author.ID)
	if channelID == "" {
		discord.Reply(s, m, "Join a voice channel first, then run `!clipstart` again.")
		return
	}

	if err := c.voice.Join(m.GuildID, channelID, c.sink); err != nil {
		slog.Error("commands: voice join failed", "guild_id", m.GuildID, "channel_id", channelID, "error", err)
		discord.Reply(s, m, "Could not join your voice channel.")
		return
	}
	c.recorder.StartRecording(m.GuildID, channelID)
	if c.dashboard != nil {
		c.dashboard.Start(m.ChannelID)
	}

	slog.Info("commands: recording started", "guild_id", m.GuildID, "channel_id", channelID, "by", m.Author.ID)
	discord.Reply(s, m, "🔴 Recording. Say something clip-worthy and run `!clip`.")
}

func (c *ClipCommands) handleStop(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	if !c.perms.IsAdmin(m) {
		discord.Reply(s, m, "Only admins can control recording.")
		return
	}
	if !c.recorder.IsRecording() {
		discord.Reply(s, m, "Not recording.")
		return
	}

	c.recorder.StopRecording()
	if c.dashboard != nil {
		c.dashboard.Stop()
	}
	if err := c.voice.Leave(); err != nil {
		slog.Error("commands: voice leave failed", "error", err)
	}

	slog.Info("commands: recording stopped", "by", m.Author.ID)
	discord.Reply(s, m, "⏹️ Recording stopped. The buffer is cleared.")
}

func (c *ClipCommands) handleClip(s *discordgo.Session, m *discordgo.MessageCreate, _ []string, _ string) {
	status := discord.SendStatus(s, m.ChannelID, "🎬 Cooking your clip...")

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	start := time.Now()
	res, err := c.exporter.Export(ctx)
	if err != nil {
		c.metrics.RecordClipExport(ctx, clipStatus(err), 0)
		if c.dashboard != nil && clipStatus(err) == "error" {
			c.dashboard.Stats().IncrErrors()
		}
		discord.EditStatus(s, status, clipErrorMessage(err))
		return
	}
	elapsed := time.Since(start)
	c.metrics.RecordClipExport(ctx, "ok", elapsed.Seconds())
	if c.dashboard != nil {
		c.dashboard.Stats().RecordExport(elapsed)
	}

	if res.TooLarge {
		discord.EditStatus(s, status, fmt.Sprintf(
			"Clip is ready but too big for Discord (%d MiB). Grab it from `%s`.",
			res.TotalBytes>>20, res.Dir,
		))
		return
	}

	if err := discord.SendFiles(s, m.ChannelID, clipCaption(res, elapsed), res.DeliveryFiles()); err != nil {
		slog.Error("commands: clip upload failed", "dir", res.Dir, "error", err)
		discord.EditStatus(s, status, fmt.Sprintf("Upload failed; the clip is saved under `%s`.", res.Dir))
		return
	}
	discord.EditStatus(s, status, "🎬 Clip delivered.")
}

// clipStatus maps an export error to a metrics status label.
func clipStatus(err error) string {
	var cooldown *clip.CooldownError
	switch {
	case errors.Is(err, clip.ErrNotRecording):
		return "not_recording"
	case errors.As(err, &cooldown):
		return "cooldown"
	case errors.Is(err, clip.ErrNoAudio), errors.Is(err, clip.ErrNoRecentAudio):
		return "no_audio"
	default:
		return "error"
	}
}

// clipErrorMessage maps an export error to the chat reply.
func clipErrorMessage(err error) string {
	var cooldown *clip.CooldownError
	switch {
	case errors.Is(err, clip.ErrNotRecording):
		return "I'm not recording. An admin can start me with `!clipstart`."
	case errors.As(err, &cooldown):
		return fmt.Sprintf("Easy there. Clip again in %d seconds.", cooldown.RemainingSeconds())
	case errors.Is(err, clip.ErrNoAudio):
		return "Nobody has said anything yet. Nothing to clip."
	case errors.Is(err, clip.ErrNoRecentAudio):
		return "The last minute was pure silence. Nothing to clip."
	default:
		return "Clip export failed. Check the logs."
	}
}

// clipCaption describes a delivered clip.
func clipCaption(res *clip.Result, elapsed time.Duration) string {
	if len(res.Tracks) == 1 {
		return fmt.Sprintf("🎬 Clip of **%s** (rendered in %.1fs)", res.Tracks[0].DisplayName, elapsed.Seconds())
	}
	return fmt.Sprintf("🎬 Clip with %d speakers (rendered in %.1fs). Mixed audio plus per-speaker tracks attached.",
		len(res.Tracks), elapsed.Seconds())
}
