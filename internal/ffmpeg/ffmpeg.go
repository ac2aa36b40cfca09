// Package ffmpeg wraps the ffmpeg command-line tool for the two jobs the
// bot needs: encoding raw captured PCM into distributable MP3s (with a
// voice-enhancement filter chain) and decoding arbitrary audio files
// back into the fixed PCM format for voice-channel playback.
//
// ffmpeg is invoked as a subprocess; a non-zero exit is returned as an
// error carrying the captured stderr so callers can log the diagnostic
// without crashing.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Raw PCM input format flags, matching the capture pipeline's fixed
// format (48 kHz stereo s16le).
const (
	sampleRate = 48000
	channels   = 2
)

// enhanceFilter is the voice-enhancement chain applied to every encoded
// track: band-pass to the voice range, FFT noise reduction, gain boost,
// and loudness normalization.
const enhanceFilter = "highpass=f=200,lowpass=f=3500,afftdn=nf=-25,volume=1.5,loudnorm=I=-16:TP=-1.5:LRA=11"

// Runner executes an external command and returns its captured stderr.
// The default implementation shells out via os/exec; tests substitute a
// fake to exercise the transcoder without an ffmpeg binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

// Output runs an external command and returns its captured stdout.
// Split from [Runner] because only playback decoding reads stdout.
type OutputRunner interface {
	Output(ctx context.Context, name string, args ...string) (stdout []byte, err error)
}

// execRunner shells out for real.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Transcoder invokes ffmpeg for PCM encoding and file decoding.
//
// Transcoder is safe for concurrent use.
type Transcoder struct {
	bin    string
	runner Runner
	output OutputRunner
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithBinary overrides the ffmpeg executable path.
func WithBinary(path string) Option {
	return func(t *Transcoder) { t.bin = path }
}

// WithRunner substitutes the subprocess runner. Used in tests.
func WithRunner(r Runner) Option {
	return func(t *Transcoder) { t.runner = r }
}

// WithOutputRunner substitutes the stdout-capturing runner. Used in tests.
func WithOutputRunner(r OutputRunner) Option {
	return func(t *Transcoder) { t.output = r }
}

// New creates a Transcoder using the "ffmpeg" binary on PATH.
func New(opts ...Option) *Transcoder {
	r := execRunner{}
	t := &Transcoder{bin: "ffmpeg", runner: r, output: r}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EncodePCM encodes a raw s16le PCM file into an MP3 at mp3Path, running
// the voice-enhancement filter chain. The input format flags must match
// the capture pipeline exactly or ffmpeg will misread the data.
func (t *Transcoder) EncodePCM(ctx context.Context, pcmPath, mp3Path string) error {
	args := []string{
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", pcmPath,
		"-af", enhanceFilter,
		"-codec:a", "libmp3lame",
		"-qscale:a", "2",
		mp3Path,
	}

	stderr, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg: encode %q: %w: %s", pcmPath, err, lastLine(stderr))
	}
	return nil
}

// Decode converts any audio file ffmpeg can read into raw s16le PCM at
// the fixed capture format, returned as bytes from stdout.
func (t *Transcoder) Decode(ctx context.Context, path string) ([]byte, error) {
	args := []string{
		"-i", path,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}

	pcm, err := t.output.Output(ctx, t.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: decode %q: %w", path, err)
	}
	return pcm, nil
}

// Check verifies the ffmpeg binary is runnable. Used as a readiness probe.
func (t *Transcoder) Check(ctx context.Context) error {
	if _, err := t.runner.Run(ctx, t.bin, "-version"); err != nil {
		return fmt.Errorf("ffmpeg: not available: %w", err)
	}
	return nil
}

// lastLine trims stderr down to its last non-empty line; ffmpeg puts
// the actual failure reason there, after pages of banner output.
func lastLine(stderr []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(stderr), []byte("\n"))
	if len(lines) == 0 {
		return nil
	}
	return bytes.TrimSpace(lines[len(lines)-1])
}
