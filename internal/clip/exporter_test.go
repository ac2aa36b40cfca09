package clip

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roshanbot/roshan/internal/capture"
)

// fakeRecorder is a canned capture-side view.
type fakeRecorder struct {
	recording bool
	snap      []capture.UserAudio
	retention time.Duration
}

func (f *fakeRecorder) IsRecording() bool             { return f.recording }
func (f *fakeRecorder) Snapshot() []capture.UserAudio { return f.snap }
func (f *fakeRecorder) Retention() time.Duration      { return f.retention }

// fakeEncoder writes a placeholder MP3 of the configured size, or fails.
type fakeEncoder struct {
	size      int
	err       error
	panicWith any
	calls     []string
}

func (f *fakeEncoder) EncodePCM(_ context.Context, pcmPath, mp3Path string) error {
	f.calls = append(f.calls, mp3Path)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return f.err
	}
	size := f.size
	if size == 0 {
		size = 128
	}
	return os.WriteFile(mp3Path, make([]byte, size), 0o644)
}

func testTime() time.Time {
	return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
}

// speech builds a one-user snapshot with a single session of n frames
// starting at the given time.
func speech(userID, name string, start time.Time, frames int) capture.UserAudio {
	s := capture.Session{Start: start}
	for range frames {
		s.Chunks = append(s.Chunks, make([]byte, capture.BytesPerFrame))
		s.TotalBytes += capture.BytesPerFrame
	}
	return capture.UserAudio{UserID: userID, DisplayName: name, Sessions: []capture.Session{s}}
}

func newTestExporter(t *testing.T, rec *fakeRecorder, enc *fakeEncoder, opts ...Option) *Exporter {
	t.Helper()
	if rec.retention == 0 {
		rec.retention = capture.DefaultRetention
	}
	opts = append([]Option{WithClock(testTime)}, opts...)
	return New(rec, enc, t.TempDir(), opts...)
}

func TestExport_NotRecording(t *testing.T) {
	t.Parallel()

	e := newTestExporter(t, &fakeRecorder{recording: false}, &fakeEncoder{})

	_, err := e.Export(context.Background())
	if !errors.Is(err, ErrNotRecording) {
		t.Errorf("err = %v, want ErrNotRecording", err)
	}
}

func TestExport_NoAudioWritesNothing(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{recording: true}
	dir := t.TempDir()
	e := New(rec, &fakeEncoder{}, dir, WithClock(testTime))

	_, err := e.Export(context.Background())
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("err = %v, want ErrNoAudio", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("expected no file-system writes, found %d entries", len(entries))
	}
}

func TestExport_NoRecentAudio(t *testing.T) {
	t.Parallel()

	// A session that ended well before the trailing window.
	stale := speech("alice", "Alice", testTime().Add(-10*time.Minute), 50)
	rec := &fakeRecorder{recording: true, snap: []capture.UserAudio{stale}}
	e := newTestExporter(t, rec, &fakeEncoder{})

	_, err := e.Export(context.Background())
	if !errors.Is(err, ErrNoRecentAudio) {
		t.Errorf("err = %v, want ErrNoRecentAudio", err)
	}
}

func TestExport_Success(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{recording: true, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-30*time.Second), 100),
		speech("bob", "Bob", testTime().Add(-20*time.Second), 100),
	}}
	enc := &fakeEncoder{}
	e := newTestExporter(t, rec, enc)

	res, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(res.Tracks))
	}
	if res.TooLarge {
		t.Error("unexpected TooLarge for tiny artifacts")
	}
	for _, p := range append([]string{res.MixedPath, res.ArchivePath}, res.Tracks[0].Path, res.Tracks[1].Path) {
		if _, statErr := os.Stat(p); statErr != nil {
			t.Errorf("missing artifact %q: %v", p, statErr)
		}
	}

	// Per-user tracks plus mix are all encoded.
	if len(enc.calls) != 3 {
		t.Errorf("encoder calls = %d, want 3", len(enc.calls))
	}

	// Intermediate PCM files are cleaned up.
	entries, _ := os.ReadDir(res.Dir)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".pcm") {
			t.Errorf("intermediate file %q not removed", entry.Name())
		}
	}

	// The archive holds both per-user tracks.
	zr, zipErr := zip.OpenReader(res.ArchivePath)
	if zipErr != nil {
		t.Fatalf("open archive: %v", zipErr)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("archive entries = %d, want 2", len(zr.File))
	}
}

func TestExport_SingleUserHasNoArchive(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{recording: true, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-10*time.Second), 100),
	}}
	e := newTestExporter(t, rec, &fakeEncoder{})

	res, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ArchivePath != "" {
		t.Errorf("unexpected archive for a single track: %q", res.ArchivePath)
	}

	files := res.DeliveryFiles()
	if len(files) != 2 {
		t.Errorf("delivery files = %v, want mix plus lone track", files)
	}
}

func TestExport_Cooldown(t *testing.T) {
	t.Parallel()

	now := testTime()
	clock := func() time.Time { return now }

	rec := &fakeRecorder{recording: true, retention: capture.DefaultRetention, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-10*time.Second), 50),
	}}
	e := New(rec, &fakeEncoder{}, t.TempDir(), WithClock(clock))

	if _, err := e.Export(context.Background()); err != nil {
		t.Fatalf("first export failed: %v", err)
	}

	// 10 s later: rejected with 20 s remaining.
	now = testTime().Add(10 * time.Second)
	rec.snap[0] = speech("alice", "Alice", now.Add(-5*time.Second), 50)

	_, err := e.Export(context.Background())
	var cdErr *CooldownError
	if !errors.As(err, &cdErr) {
		t.Fatalf("err = %v, want CooldownError", err)
	}
	if got := cdErr.RemainingSeconds(); got != 20 {
		t.Errorf("RemainingSeconds() = %d, want 20", got)
	}

	// After the cooldown the same data exports fine.
	now = testTime().Add(31 * time.Second)
	if _, err := e.Export(context.Background()); err != nil {
		t.Errorf("export after cooldown failed: %v", err)
	}
}

func TestExport_FailedExportDoesNotStartCooldown(t *testing.T) {
	t.Parallel()

	now := testTime()
	clock := func() time.Time { return now }

	rec := &fakeRecorder{recording: true, retention: capture.DefaultRetention, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-10*time.Second), 50),
	}}
	enc := &fakeEncoder{err: errors.New("exit status 1")}
	e := New(rec, enc, t.TempDir(), WithClock(clock))

	if _, err := e.Export(context.Background()); err == nil {
		t.Fatal("expected encode failure")
	}

	// A retry right away must not hit the cooldown.
	enc.err = nil
	if _, err := e.Export(context.Background()); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestExport_OversizeReportsPathWithoutDelivery(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{recording: true, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-10*time.Second), 50),
	}}
	e := newTestExporter(t, rec, &fakeEncoder{size: 4096}, WithMaxUploadBytes(1024))

	res, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TooLarge {
		t.Error("expected TooLarge for artifacts above the limit")
	}
	if res.Dir == "" {
		t.Error("oversize result must carry the on-disk directory")
	}
}

func TestExport_PanicIsContained(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{recording: true, snap: []capture.UserAudio{
		speech("alice", "Alice", testTime().Add(-10*time.Second), 50),
	}}
	enc := &fakeEncoder{panicWith: "encoder blew up"}
	e := newTestExporter(t, rec, enc)

	res, err := e.Export(context.Background())
	if err == nil {
		t.Fatal("expected error from panicking pipeline")
	}
	if res != nil {
		t.Errorf("expected nil result after panic, got %+v", res)
	}
	if errors.Is(err, ErrNotRecording) || errors.Is(err, ErrNoAudio) {
		t.Errorf("panic surfaced as a precondition error: %v", err)
	}

	// The exporter stays usable after the panic.
	enc.panicWith = nil
	if _, err := e.Export(context.Background()); err != nil {
		t.Errorf("export after contained panic: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		userID string
		want   string
	}{
		{"plain", "Alice", "1", "Alice"},
		{"spaces", "Dota Enjoyer", "1", "Dota_Enjoyer"},
		{"path characters stripped", "../../etc/passwd", "1", "etcpasswd"},
		{"all symbols falls back to id", "!!!", "42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := sanitizeName(tt.in, tt.userID); got != tt.want {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResultDeliveryFiles(t *testing.T) {
	t.Parallel()

	r := &Result{
		MixedPath:   filepath.Join("d", "mixed.mp3"),
		ArchivePath: filepath.Join("d", "tracks.zip"),
		Tracks:      []Track{{Path: filepath.Join("d", "a.mp3")}},
	}
	files := r.DeliveryFiles()
	if len(files) != 2 || files[0] != r.MixedPath || files[1] != r.ArchivePath {
		t.Errorf("DeliveryFiles() = %v", files)
	}
}
