// Package capture maintains rolling per-user audio buffers for a joined
// voice channel. While recording is active it tracks one [Session] per
// contiguous speaking burst per user, prunes stale audio on a fixed
// interval, and can reconstruct a continuous silence-padded PCM track
// for any time window via [BuildTrack].
//
// All audio is fixed-format: 48 kHz, 2 channels, 16-bit little-endian
// samples, delivered in 20 ms frames. Because the format never changes,
// a session's duration is derived from its byte count alone; individual
// frames carry no timestamps.
package capture

import "time"

// Fixed PCM format for all captured audio.
const (
	SampleRate     = 48000
	Channels       = 2
	BytesPerSample = 2

	// FrameDuration is the length of one decoded voice frame.
	FrameDuration = 20 * time.Millisecond

	// SamplesPerFrame is the number of samples per channel in one frame.
	SamplesPerFrame = SampleRate / int(time.Second/FrameDuration) // 960

	// BytesPerFrame is the byte size of one interleaved stereo frame.
	BytesPerFrame = SamplesPerFrame * Channels * BytesPerSample // 3840

	// BytesPerSecond is the byte rate of the fixed PCM format.
	BytesPerSecond = SampleRate * Channels * BytesPerSample
)

// Session is one contiguous burst of speech from a single user. Frames
// are appended strictly in capture order with no internal gaps, so the
// burst's extent in time is fully described by Start and TotalBytes.
type Session struct {
	// Start is the wall-clock time the burst began.
	Start time.Time

	// Chunks holds the decoded PCM frames in arrival order.
	Chunks [][]byte

	// TotalBytes is the summed length of all chunks.
	TotalBytes int
}

// Duration returns the session length derived from its byte count.
//
// This intentionally ignores any wall-clock drift between frame arrival
// and the notional 20 ms cadence; long bursts may therefore diverge
// slightly from real elapsed time. Accepted as a limitation.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.TotalBytes) * time.Second / BytesPerSecond
}

// End returns the derived end time of the session (Start + Duration).
func (s *Session) End() time.Time {
	return s.Start.Add(s.Duration())
}

// append adds one decoded frame to the session.
func (s *Session) append(pcm []byte) {
	s.Chunks = append(s.Chunks, pcm)
	s.TotalBytes += len(pcm)
}

// clone returns a deep copy of the session. Chunk slices are copied so
// the result stays valid while the original keeps growing.
func (s *Session) clone() Session {
	c := Session{
		Start:      s.Start,
		TotalBytes: s.TotalBytes,
	}
	if len(s.Chunks) > 0 {
		c.Chunks = make([][]byte, len(s.Chunks))
		for i, chunk := range s.Chunks {
			dup := make([]byte, len(chunk))
			copy(dup, chunk)
			c.Chunks[i] = dup
		}
	}
	return c
}

// UserAudio is a read-only snapshot of one user's buffered audio,
// produced by [Tracker.Snapshot]. Sessions are ordered oldest first and
// include a copy of the still-open session if the user is mid-speech.
type UserAudio struct {
	UserID      string
	DisplayName string
	Sessions    []Session
}

// userBuffer is the tracker-owned mutable counterpart of [UserAudio].
type userBuffer struct {
	userID      string
	displayName string
	sessions    []*Session // sealed, oldest first
	open        *Session   // nil unless the user is currently speaking
}
