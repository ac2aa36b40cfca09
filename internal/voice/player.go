package voice

import (
	"context"
	"fmt"
)

// Play decodes the audio file at path and streams it into the connected
// voice channel. Playback is serialized: a second call blocks until the
// first finishes. Cancel ctx to cut playback short.
func (m *Manager) Play(ctx context.Context, path string) error {
	m.mu.Lock()
	vc := m.vc
	m.mu.Unlock()
	if vc == nil {
		return ErrNotConnected
	}

	pcm, err := m.dec.Decode(ctx, path)
	if err != nil {
		return fmt.Errorf("voice: play %q: %w", path, err)
	}

	m.playMu.Lock()
	defer m.playMu.Unlock()

	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	if err := vc.Speaking(true); err != nil {
		return fmt.Errorf("voice: speaking on: %w", err)
	}
	defer func() {
		_ = vc.Speaking(false)
	}()

	for off := 0; off < len(pcm); off += opusFrameBytes {
		frame := pcm[off:min(off+opusFrameBytes, len(pcm))]
		if len(frame) < opusFrameBytes {
			// Zero-pad the trailing partial frame to a full one.
			padded := make([]byte, opusFrameBytes)
			copy(padded, frame)
			frame = padded
		}

		opus, err := enc.encode(frame)
		if err != nil {
			return err
		}

		select {
		case vc.OpusSend <- opus:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
