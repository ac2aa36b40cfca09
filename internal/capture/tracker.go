package capture

import (
	"log/slog"
	"sync"
	"time"
)

// Default timings for the rolling capture window.
const (
	// DefaultRetention is the rolling window of audio kept in memory —
	// also the maximum length of an exported clip.
	DefaultRetention = 60 * time.Second

	// DefaultPruneInterval is how often stale sessions are swept.
	DefaultPruneInterval = 10 * time.Second
)

// Tracker owns all per-user audio buffers for one voice channel. It is
// the single mutation point for capture state: decode goroutines push
// frames, the pruner sweeps stale sessions, and exports read an explicit
// deep-copy snapshot — everything under one mutex.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	users     map[string]*userBuffer
	recording bool
	guildID   string
	channelID string

	retention     time.Duration
	pruneInterval time.Duration

	pruneStop chan struct{}

	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetention overrides the rolling retention window.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// WithPruneInterval overrides the pruner sweep interval.
func WithPruneInterval(d time.Duration) Option {
	return func(t *Tracker) { t.pruneInterval = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an idle Tracker. Recording starts only when
// [Tracker.StartRecording] is called.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		users:         make(map[string]*userBuffer),
		retention:     DefaultRetention,
		pruneInterval: DefaultPruneInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Retention returns the configured rolling window.
func (t *Tracker) Retention() time.Duration {
	return t.retention
}

// StartRecording begins accepting frames for the given voice channel and
// starts the periodic retention sweep. Calling it again for the same
// channel is a no-op; calling it for a different channel performs a full
// stop first, discarding all buffered audio.
func (t *Tracker) StartRecording(guildID, channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recording {
		if t.guildID == guildID && t.channelID == channelID {
			return
		}
		t.stopLocked()
	}

	t.recording = true
	t.guildID = guildID
	t.channelID = channelID
	t.pruneStop = make(chan struct{})
	go t.pruneLoop(t.pruneStop)

	slog.Info("capture: recording started", "guild_id", guildID, "channel_id", channelID)
}

// StopRecording discards every buffer and session and cancels the
// retention sweep. Safe to call when not recording.
func (t *Tracker) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.recording {
		return
	}
	t.stopLocked()
	slog.Info("capture: recording stopped")
}

// stopLocked clears all state. Caller must hold t.mu.
func (t *Tracker) stopLocked() {
	t.recording = false
	t.users = make(map[string]*userBuffer)
	t.guildID = ""
	t.channelID = ""
	if t.pruneStop != nil {
		close(t.pruneStop)
		t.pruneStop = nil
	}
}

// IsRecording reports whether frames are currently being accepted.
func (t *Tracker) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// Channel returns the guild and channel being recorded. Both are empty
// when not recording.
func (t *Tracker) Channel() (guildID, channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.guildID, t.channelID
}

// PushFrame appends one decoded PCM frame to the user's open session,
// opening a new session (silence-to-speech transition) if none exists.
// displayName refreshes the user's last-known name. Frames arriving
// while not recording are dropped.
func (t *Tracker) PushFrame(userID, displayName string, pcm []byte) {
	if len(pcm) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.recording {
		return
	}

	buf := t.users[userID]
	if buf == nil {
		buf = &userBuffer{userID: userID}
		t.users[userID] = buf
	}
	if displayName != "" {
		buf.displayName = displayName
	}

	if buf.open == nil {
		buf.open = &Session{Start: t.now()}
	}
	buf.open.append(pcm)
}

// EndStream seals the user's open session, if any. Empty sessions are
// discarded rather than sealed. Called on explicit speaking-end, stream
// error, or silence timeout; a decode failure for one user therefore
// never disturbs another user's sessions.
func (t *Tracker) EndStream(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := t.users[userID]
	if buf == nil || buf.open == nil {
		return
	}

	if buf.open.TotalBytes > 0 {
		buf.sessions = append(buf.sessions, buf.open)
	}
	buf.open = nil
}

// Snapshot returns a deep copy of every user's sessions, including a
// copy of any still-open session. The copy is taken atomically under the
// tracker lock, so a slow export never reads chunks that concurrent
// frames are appending to.
func (t *Tracker) Snapshot() []UserAudio {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]UserAudio, 0, len(t.users))
	for _, buf := range t.users {
		ua := UserAudio{
			UserID:      buf.userID,
			DisplayName: buf.displayName,
		}
		for _, s := range buf.sessions {
			ua.Sessions = append(ua.Sessions, s.clone())
		}
		if buf.open != nil && buf.open.TotalBytes > 0 {
			ua.Sessions = append(ua.Sessions, buf.open.clone())
		}
		out = append(out, ua)
	}
	return out
}

// TrackedUsers returns the number of users with buffered audio.
func (t *Tracker) TrackedUsers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// BufferedBytes returns the total PCM bytes currently held across all
// users, sealed and open sessions included.
func (t *Tracker) BufferedBytes() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, buf := range t.users {
		for _, s := range buf.sessions {
			total += s.TotalBytes
		}
		if buf.open != nil {
			total += buf.open.TotalBytes
		}
	}
	return total
}

// pruneLoop sweeps stale sessions until stop is closed.
func (t *Tracker) pruneLoop(stop chan struct{}) {
	ticker := time.NewTicker(t.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.prune()
		}
	}
}

// prune drops sealed sessions whose derived end time fell out of the
// retention window, and drops users left with no sessions and no open
// session. The open session of an actively speaking user is never
// touched, regardless of age.
func (t *Tracker) prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)

	for userID, buf := range t.users {
		kept := buf.sessions[:0]
		for _, s := range buf.sessions {
			if s.End().After(cutoff) {
				kept = append(kept, s)
			}
		}
		buf.sessions = kept

		if len(buf.sessions) == 0 && buf.open == nil {
			delete(t.users, userID)
		}
	}
}
