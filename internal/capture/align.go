package capture

import (
	"math"
	"sort"
	"time"
)

// BuildTrack reconstructs one continuous PCM track for the window
// [start, end) from a user's sessions. Gaps between bursts come out as
// silence (zero samples); each session is placed at its whole-frame
// offset and copied sequentially.
//
// Session offsets are snapped to frame boundaries: the raw offset
// (session start minus window start) is rounded to the nearest whole
// frame before converting to bytes. Placing audio mid-frame would let
// copies straddle a sample pair and produce audible clicks; snapping at
// burst granularity keeps intra-session playback strictly sequential
// while preserving realistic gap timing between bursts.
//
// Sessions are sorted by start time first — sealing order is not
// guaranteed to be temporal under delayed error callbacks. A session
// starting before the window is clamped to offset zero; one starting at
// or past the window end is skipped. The result is deterministic: the
// same sessions and window always produce byte-identical output.
func BuildTrack(sessions []Session, start, end time.Time) []byte {
	totalBytes := int(math.Floor(end.Sub(start).Seconds()*SampleRate)) * Channels * BytesPerSample
	if totalBytes <= 0 {
		return nil
	}
	out := make([]byte, totalBytes)

	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for _, s := range sorted {
		offset := frameOffset(s.Start.Sub(start))
		if offset < 0 {
			offset = 0
		}
		if offset >= totalBytes {
			continue
		}

		pos := offset
		for _, chunk := range s.Chunks {
			if pos >= totalBytes {
				break
			}
			n := copy(out[pos:], chunk)
			pos += n
		}
	}

	return out
}

// frameOffset converts a time offset into a byte offset snapped to the
// nearest whole-frame boundary.
func frameOffset(d time.Duration) int {
	frames := math.Round(float64(d) / float64(FrameDuration))
	return int(frames) * BytesPerFrame
}
