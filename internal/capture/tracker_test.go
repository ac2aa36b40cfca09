package capture

import (
	"bytes"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// frame returns one full 20 ms frame filled with the given byte.
func frame(b byte) []byte {
	f := make([]byte, BytesPerFrame)
	for i := range f {
		f[i] = b
	}
	return f
}

func newTestTracker(clock *fakeClock) *Tracker {
	t := NewTracker(
		WithClock(clock.now),
		// A very long interval keeps the background sweep quiet; tests
		// call prune() directly.
		WithPruneInterval(time.Hour),
	)
	t.StartRecording("guild-1", "voice-1")
	return t
}

func TestTracker_SealedSessionsAreNeverEmpty(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	// A burst that produced no frames must be discarded, not sealed.
	tr.PushFrame("alice", "Alice", nil)
	tr.EndStream("alice")

	if got := tr.TrackedUsers(); got != 0 {
		t.Fatalf("expected no tracked users after empty burst, got %d", got)
	}

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")

	snap := tr.Snapshot()
	if len(snap) != 1 || len(snap[0].Sessions) != 1 {
		t.Fatalf("expected one sealed session, got %+v", snap)
	}
	if snap[0].Sessions[0].TotalBytes == 0 {
		t.Error("sealed session has zero bytes")
	}
}

func TestTracker_SealedSessionsDoNotOverlap(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	// First burst: 5 frames = 100 ms.
	for range 5 {
		tr.PushFrame("alice", "Alice", frame(1))
	}
	tr.EndStream("alice")

	// Silence, then a second burst.
	clock.advance(2 * time.Second)
	for range 3 {
		tr.PushFrame("alice", "Alice", frame(2))
	}
	tr.EndStream("alice")

	snap := tr.Snapshot()
	sessions := snap[0].Sessions
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sealed sessions, got %d", len(sessions))
	}
	if !sessions[0].End().Before(sessions[1].Start) && !sessions[0].End().Equal(sessions[1].Start) {
		t.Errorf("sessions overlap: first ends %v, second starts %v",
			sessions[0].End(), sessions[1].Start)
	}
}

func TestTracker_SessionDurationDerivedFromBytes(t *testing.T) {
	t.Parallel()

	s := &Session{Start: time.Now()}
	for range 50 {
		s.append(frame(0))
	}

	// 50 frames × 20 ms = 1 s.
	if got := s.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestTracker_StartRecordingIdempotentSameChannel(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")

	tr.StartRecording("guild-1", "voice-1")

	if got := tr.TrackedUsers(); got != 1 {
		t.Errorf("restart on same channel cleared buffers: %d users", got)
	}
}

func TestTracker_StartRecordingDifferentChannelClearsAll(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")

	tr.StartRecording("guild-1", "voice-2")

	if got := tr.TrackedUsers(); got != 0 {
		t.Errorf("expected buffers cleared on channel switch, got %d users", got)
	}
	_, channelID := tr.Channel()
	if channelID != "voice-2" {
		t.Errorf("channel = %q, want voice-2", channelID)
	}
}

func TestTracker_FramesDroppedWhenNotRecording(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := NewTracker(WithClock(clock.now), WithPruneInterval(time.Hour))

	tr.PushFrame("alice", "Alice", frame(1))

	if got := tr.TrackedUsers(); got != 0 {
		t.Errorf("expected frames dropped while idle, got %d users", got)
	}
}

func TestTracker_SnapshotIncludesOpenSessionCopy(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(7))

	snap := tr.Snapshot()
	if len(snap) != 1 || len(snap[0].Sessions) != 1 {
		t.Fatalf("expected open session in snapshot, got %+v", snap)
	}

	// Mutating tracker state after the snapshot must not change the copy.
	got := snap[0].Sessions[0]
	tr.PushFrame("alice", "Alice", frame(9))

	if got.TotalBytes != BytesPerFrame {
		t.Errorf("snapshot grew after PushFrame: %d bytes", got.TotalBytes)
	}
	if !bytes.Equal(got.Chunks[0], frame(7)) {
		t.Error("snapshot chunk was mutated by later capture")
	}
}

func TestTracker_PruneDropsStaleSessions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")

	// Age the session past the retention window.
	clock.advance(DefaultRetention + time.Second)
	tr.prune()

	if got := tr.TrackedUsers(); got != 0 {
		t.Errorf("expected stale user removed, got %d users", got)
	}
}

func TestTracker_PruneKeepsRecentSessions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")

	clock.advance(DefaultRetention / 2)
	tr.prune()

	if got := tr.TrackedUsers(); got != 1 {
		t.Errorf("recent session was pruned, got %d users", got)
	}
}

func TestTracker_PruneNeverTouchesOpenSession(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	// Sealed session that will go stale, plus an open one.
	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")
	tr.PushFrame("alice", "Alice", frame(2))

	clock.advance(DefaultRetention * 2)
	tr.prune()

	snap := tr.Snapshot()
	if len(snap) != 1 {
		t.Fatal("user with open session was pruned")
	}
	if len(snap[0].Sessions) != 1 {
		t.Fatalf("expected only the open session to survive, got %d sessions", len(snap[0].Sessions))
	}
	if !bytes.Equal(snap[0].Sessions[0].Chunks[0], frame(2)) {
		t.Error("surviving session is not the open one")
	}
}

func TestTracker_EndStreamIsolatedPerUser(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.PushFrame("bob", "Bob", frame(2))

	// Bob's stream errors out; Alice keeps speaking.
	tr.EndStream("bob")
	tr.PushFrame("alice", "Alice", frame(1))

	snap := tr.Snapshot()
	for _, ua := range snap {
		switch ua.UserID {
		case "alice":
			if len(ua.Sessions) != 1 || ua.Sessions[0].TotalBytes != 2*BytesPerFrame {
				t.Errorf("alice's open session disturbed: %+v", ua.Sessions)
			}
		case "bob":
			if len(ua.Sessions) != 1 {
				t.Errorf("bob's session not sealed: %+v", ua.Sessions)
			}
		}
	}
}

func TestTracker_BufferedBytes(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")
	tr.PushFrame("bob", "Bob", frame(2))

	if got := tr.BufferedBytes(); got != 2*BytesPerFrame {
		t.Errorf("BufferedBytes() = %d, want %d", got, 2*BytesPerFrame)
	}
}

func TestTracker_DisplayNameRefreshed(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	tr := newTestTracker(clock)
	defer tr.StopRecording()

	tr.PushFrame("alice", "Alice", frame(1))
	tr.EndStream("alice")
	tr.PushFrame("alice", "Alicia", frame(1))

	snap := tr.Snapshot()
	if snap[0].DisplayName != "Alicia" {
		t.Errorf("DisplayName = %q, want Alicia", snap[0].DisplayName)
	}
}
