package discord

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CaptureData provides the data needed to render a recording dashboard
// embed. Implemented by the capture tracker.
type CaptureData interface {
	IsRecording() bool
	Channel() (guildID, channelID string)
	TrackedUsers() int
	BufferedBytes() int
}

// embedColorGreen is the embed sidebar color while recording.
const embedColorGreen = 0x2ECC71

// embedColorRed is the embed sidebar color after recording stops.
const embedColorRed = 0xE74C3C

// defaultInterval is the default dashboard update interval.
const defaultInterval = 10 * time.Second

// Dashboard renders and periodically updates a Discord embed showing
// live recording state. The embed is created when recording starts and
// edited in place every update interval; stopping posts a final edit.
//
// Thread-safe for concurrent use.
type Dashboard struct {
	session  *discordgo.Session
	interval time.Duration
	data     CaptureData
	stats    *CaptureStats

	mu        sync.Mutex
	channelID string // text channel hosting the embed
	messageID string // embed message; created on first update
	startedAt time.Time
	done      chan struct{}
}

// DashboardConfig holds dependencies for creating a Dashboard.
type DashboardConfig struct {
	Session  *discordgo.Session
	Interval time.Duration // Default: 10 seconds
	Data     CaptureData
	Stats    *CaptureStats
}

// NewDashboard creates a Dashboard.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	if cfg.Stats == nil {
		cfg.Stats = NewCaptureStats(100)
	}
	return &Dashboard{
		session:  cfg.Session,
		interval: interval,
		data:     cfg.Data,
		stats:    cfg.Stats,
	}
}

// Stats returns the capture stats collector for this dashboard,
// allowing callers to record export latency and counter values.
func (d *Dashboard) Stats() *CaptureStats {
	return d.stats
}

// Start begins the periodic update loop, posting the embed into the
// given text channel. Starting while already running restarts the loop
// there.
func (d *Dashboard) Start(channelID string) {
	d.mu.Lock()
	if d.done != nil {
		close(d.done)
	}
	d.channelID = channelID
	d.messageID = ""
	d.startedAt = time.Now()
	done := make(chan struct{})
	d.done = done
	d.mu.Unlock()

	go d.loop(done)
}

// Stop halts the periodic update loop and posts a final "stopped" embed.
// Safe to call when not running.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	if d.done == nil {
		d.mu.Unlock()
		return
	}
	close(d.done)
	d.done = nil
	d.mu.Unlock()

	d.postFinalEmbed()
}

// loop runs the periodic embed update until the done channel closes.
func (d *Dashboard) loop(done chan struct{}) {
	// Post immediately on start.
	d.update()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.update()
		}
	}
}

// update builds the embed from current data and creates or edits the message.
func (d *Dashboard) update() {
	var snap CaptureSnapshot
	if d.stats != nil {
		snap = d.stats.Snapshot()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	embed := d.buildEmbed(snap)

	if d.messageID == "" {
		msg, err := d.session.ChannelMessageSendEmbed(d.channelID, embed)
		if err != nil {
			slog.Warn("dashboard: failed to create embed message", "channel", d.channelID, "err", err)
			return
		}
		d.messageID = msg.ID
		slog.Debug("dashboard: created embed message", "message_id", msg.ID, "channel", d.channelID)
	} else {
		_, err := d.session.ChannelMessageEditEmbed(d.channelID, d.messageID, embed)
		if err != nil {
			slog.Warn("dashboard: failed to edit embed message", "message_id", d.messageID, "err", err)
		}
	}
}

// postFinalEmbed posts a "recording stopped" version of the embed.
func (d *Dashboard) postFinalEmbed() {
	var snap CaptureSnapshot
	if d.stats != nil {
		snap = d.stats.Snapshot()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.messageID == "" {
		return
	}
	embed := d.buildEndedEmbed(snap)
	_, err := d.session.ChannelMessageEditEmbed(d.channelID, d.messageID, embed)
	if err != nil {
		slog.Warn("dashboard: failed to post final embed", "message_id", d.messageID, "err", err)
	}
}

// buildEmbed creates the live dashboard embed. Caller holds d.mu.
func (d *Dashboard) buildEmbed(snap CaptureSnapshot) *discordgo.MessageEmbed {
	_, channelID := d.data.Channel()

	fields := []*discordgo.MessageEmbedField{
		{Name: "Voice Channel", Value: channelMention(channelID), Inline: true},
		{Name: "Recording For", Value: formatDuration(time.Since(d.startedAt)), Inline: true},
		{Name: "Speakers Tracked", Value: fmt.Sprintf("%d", d.data.TrackedUsers()), Inline: true},
		{Name: "Buffered Audio", Value: formatBytes(d.data.BufferedBytes()), Inline: true},
		{Name: "Clips Exported", Value: fmt.Sprintf("%d", snap.Clips), Inline: true},
		{Name: "Errors", Value: fmt.Sprintf("%d", snap.Errors), Inline: true},
	}

	if latency := formatLatencyField(snap); latency != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Export Latency",
			Value:  latency,
			Inline: false,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  "🔴 Recording",
		Color:  embedColorGreen,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Live — updated every " + d.interval.String(),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// buildEndedEmbed creates the final "recording stopped" embed. Caller
// holds d.mu.
func (d *Dashboard) buildEndedEmbed(snap CaptureSnapshot) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Recorded For", Value: formatDuration(time.Since(d.startedAt)), Inline: true},
		{Name: "Clips Exported", Value: fmt.Sprintf("%d", snap.Clips), Inline: true},
		{Name: "Errors", Value: fmt.Sprintf("%d", snap.Errors), Inline: true},
	}

	return &discordgo.MessageEmbed{
		Title:       "Recording Stopped",
		Description: "Voice capture has ended.",
		Color:       embedColorRed,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Recording ended",
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// formatLatencyField builds a compact string showing export latencies.
// Returns empty string if no samples have been recorded yet.
func formatLatencyField(snap CaptureSnapshot) string {
	if snap.Export.P50 == 0 && snap.Export.P95 == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "export: p50=%s p95=%s\n", formatMs(snap.Export.P50), formatMs(snap.Export.P95))
	b.WriteString("```")
	return b.String()
}

// formatMs formats a duration as milliseconds with one decimal place.
func formatMs(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return fmt.Sprintf("%.1fms", ms)
}

// formatDuration formats a duration as "Xh Ym Zs".
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatBytes renders a byte count as KiB or MiB.
func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// channelMention renders a clickable channel reference.
func channelMention(channelID string) string {
	if channelID == "" {
		return "(none)"
	}
	return "<#" + channelID + ">"
}
