// Package clip drives the end-to-end clip export flow: validate
// preconditions, snapshot the capture buffers, align each user's
// sessions into a continuous track, encode and mix everything via
// ffmpeg, and bundle the per-user tracks into an archive.
//
// Export failures are always contained here — a broken encode or even a
// panic in the pipeline is converted into an error for the caller, and
// the capture buffers are never mutated, so recording continues and a
// retry is safe once the cooldown allows it.
package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/roshanbot/roshan/internal/capture"
)

// Export defaults.
const (
	// DefaultCooldown is the minimum gap between successful exports.
	DefaultCooldown = 30 * time.Second

	// DefaultMaxUploadBytes matches Discord's attachment ceiling; above
	// it the artifacts stay on disk and only the path is reported.
	DefaultMaxUploadBytes = 25 << 20

	// timestampLayout names the per-clip directory.
	timestampLayout = "2006-01-02_15-04-05"
)

// Precondition failures. These are user-facing outcomes, not pipeline
// errors; callers match them with errors.Is / errors.As.
var (
	ErrNotRecording  = errors.New("clip: not recording")
	ErrNoAudio       = errors.New("clip: no audio data buffered")
	ErrNoRecentAudio = errors.New("clip: no audio in the recent window")
)

// CooldownError reports an export attempted before the cooldown elapsed.
type CooldownError struct {
	// Remaining is the time left until the next export is allowed.
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("clip: cooldown active, %ds remaining", e.RemainingSeconds())
}

// RemainingSeconds returns the remaining cooldown rounded up to whole
// seconds, for user-facing messages.
func (e *CooldownError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}

// Recorder is the capture-side view the exporter needs. Implemented by
// [capture.Tracker].
type Recorder interface {
	IsRecording() bool
	Snapshot() []capture.UserAudio
	Retention() time.Duration
}

// Encoder encodes a raw PCM file into a distributable MP3. Implemented
// by the ffmpeg transcoder.
type Encoder interface {
	EncodePCM(ctx context.Context, pcmPath, mp3Path string) error
}

// Track is one exported per-user MP3.
type Track struct {
	UserID      string
	DisplayName string
	Path        string
}

// Result describes the artifacts of one export.
type Result struct {
	// Dir is the per-clip timestamped directory holding all artifacts.
	Dir string

	// MixedPath is the combined MP3 of all contributing users.
	MixedPath string

	// ArchivePath is the zip of per-user tracks. Empty when only one
	// user contributed.
	ArchivePath string

	// Tracks lists the individual per-user MP3s.
	Tracks []Track

	// TotalBytes is the summed size of the deliverable files.
	TotalBytes int64

	// TooLarge is set when TotalBytes exceeds the upload limit; the
	// files stay in Dir and must not be uploaded.
	TooLarge bool
}

// DeliveryFiles returns the paths to upload: the mix plus the archive,
// or the mix plus the lone track when there is no archive.
func (r *Result) DeliveryFiles() []string {
	files := []string{r.MixedPath}
	if r.ArchivePath != "" {
		files = append(files, r.ArchivePath)
	} else {
		for _, t := range r.Tracks {
			files = append(files, t.Path)
		}
	}
	return files
}

// Exporter orchestrates clip exports. It holds the cooldown stamp and
// serializes exports — two concurrent invocations would fight over the
// same artifact directory for no benefit.
type Exporter struct {
	rec Recorder
	enc Encoder
	dir string

	cooldown  time.Duration
	maxUpload int64

	mu         sync.Mutex
	lastExport time.Time

	now func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCooldown overrides the export cooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Exporter) { e.cooldown = d }
}

// WithMaxUploadBytes overrides the delivery size limit.
func WithMaxUploadBytes(n int64) Option {
	return func(e *Exporter) { e.maxUpload = n }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter writing clips under dir.
func New(rec Recorder, enc Encoder, dir string, opts ...Option) *Exporter {
	e := &Exporter{
		rec:       rec,
		enc:       enc,
		dir:       dir,
		cooldown:  DefaultCooldown,
		maxUpload: DefaultMaxUploadBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cooldown returns the current export cooldown.
func (e *Exporter) Cooldown() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cooldown
}

// SetLimits updates the cooldown and delivery size limit. Called on
// config hot reload; non-positive values keep the current setting.
func (e *Exporter) SetLimits(cooldown time.Duration, maxUpload int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cooldown > 0 {
		e.cooldown = cooldown
	}
	if maxUpload > 0 {
		e.maxUpload = maxUpload
	}
}

// Export runs the full clip pipeline for the trailing retention window.
// Precondition failures are returned as the sentinel errors above, in
// order: not recording, cooldown, no audio, no recent audio. The
// no-data checks run before any file-system write.
func (e *Exporter) Export(ctx context.Context) (res *Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Panics anywhere in the pipeline must not take down the capture
	// loop or the command handler.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("clip: export panic", "panic", r)
			res = nil
			err = fmt.Errorf("clip: export failed: %v", r)
		}
	}()

	if !e.rec.IsRecording() {
		return nil, ErrNotRecording
	}

	now := e.now()
	if !e.lastExport.IsZero() {
		if elapsed := now.Sub(e.lastExport); elapsed < e.cooldown {
			return nil, &CooldownError{Remaining: e.cooldown - elapsed}
		}
	}

	snap := e.rec.Snapshot()
	if len(snap) == 0 {
		return nil, ErrNoAudio
	}

	start := now.Add(-e.rec.Retention())
	contributors := usersInWindow(snap, start, now)
	if len(contributors) == 0 {
		return nil, ErrNoRecentAudio
	}

	res, err = e.materialize(ctx, contributors, start, now)
	if err != nil {
		return nil, err
	}

	// Oversize delivery is still a completed export; the cooldown stamp
	// advances either way.
	e.lastExport = now

	slog.Info("clip: export complete",
		"dir", res.Dir,
		"tracks", len(res.Tracks),
		"total_bytes", res.TotalBytes,
		"too_large", res.TooLarge,
	)
	return res, nil
}

// usersInWindow filters the snapshot down to users with at least one
// session intersecting [start, end).
func usersInWindow(snap []capture.UserAudio, start, end time.Time) []capture.UserAudio {
	var out []capture.UserAudio
	for _, ua := range snap {
		for _, s := range ua.Sessions {
			if s.End().After(start) && s.Start.Before(end) {
				out = append(out, ua)
				break
			}
		}
	}
	return out
}

// materialize writes, encodes, mixes, and bundles all artifacts for one
// export under a fresh timestamped directory.
func (e *Exporter) materialize(ctx context.Context, users []capture.UserAudio, start, end time.Time) (*Result, error) {
	clipDir := filepath.Join(e.dir, end.Format(timestampLayout))
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return nil, fmt.Errorf("clip: create directory: %w", err)
	}

	// Intermediate PCM files are removed whether the export succeeds or
	// not; only encoded artifacts stay on disk.
	var pcmPaths []string
	defer func() {
		for _, p := range pcmPaths {
			if err := os.Remove(p); err != nil {
				slog.Warn("clip: remove intermediate file", "path", p, "error", err)
			}
		}
	}()

	res := &Result{Dir: clipDir}
	var pcmTracks [][]byte

	// Encodes run sequentially to bound peak ffmpeg load.
	for _, ua := range users {
		pcm := capture.BuildTrack(ua.Sessions, start, end)
		name := sanitizeName(ua.DisplayName, ua.UserID)

		pcmPath := filepath.Join(clipDir, name+".pcm")
		if err := os.WriteFile(pcmPath, pcm, 0o644); err != nil {
			return nil, fmt.Errorf("clip: write track %q: %w", name, err)
		}
		pcmPaths = append(pcmPaths, pcmPath)

		mp3Path := filepath.Join(clipDir, name+".mp3")
		if err := e.enc.EncodePCM(ctx, pcmPath, mp3Path); err != nil {
			return nil, fmt.Errorf("clip: encode track %q: %w", name, err)
		}

		res.Tracks = append(res.Tracks, Track{
			UserID:      ua.UserID,
			DisplayName: ua.DisplayName,
			Path:        mp3Path,
		})
		pcmTracks = append(pcmTracks, pcm)
	}

	mixedPCMPath := filepath.Join(clipDir, "mixed.pcm")
	if err := os.WriteFile(mixedPCMPath, MixTracks(pcmTracks), 0o644); err != nil {
		return nil, fmt.Errorf("clip: write mix: %w", err)
	}
	pcmPaths = append(pcmPaths, mixedPCMPath)

	res.MixedPath = filepath.Join(clipDir, "mixed.mp3")
	if err := e.enc.EncodePCM(ctx, mixedPCMPath, res.MixedPath); err != nil {
		return nil, fmt.Errorf("clip: encode mix: %w", err)
	}

	if len(res.Tracks) > 1 {
		res.ArchivePath = filepath.Join(clipDir, "tracks.zip")
		trackPaths := make([]string, len(res.Tracks))
		for i, t := range res.Tracks {
			trackPaths[i] = t.Path
		}
		if err := writeArchive(res.ArchivePath, trackPaths); err != nil {
			return nil, err
		}
	}

	total, err := totalSize(res.DeliveryFiles())
	if err != nil {
		return nil, err
	}
	res.TotalBytes = total
	res.TooLarge = total > e.maxUpload

	return res, nil
}

// totalSize sums the on-disk sizes of the given files.
func totalSize(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return 0, fmt.Errorf("clip: stat %q: %w", p, err)
		}
		total += info.Size()
	}
	return total, nil
}

// sanitizeName turns a display name into a safe file name, falling back
// to the user ID when nothing printable survives.
func sanitizeName(displayName, userID string) string {
	var b strings.Builder
	for _, r := range displayName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return userID
	}
	return b.String()
}
