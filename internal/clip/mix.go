package clip

// Sample clamp bounds for 16-bit signed PCM.
const (
	sampleMin = -32768
	sampleMax = 32767
)

// MixTracks combines equal-length s16le PCM tracks into one by summing
// samples in 32-bit and clamping back to the int16 range, so overlapping
// speech never wraps around into noise. A single track is returned as a
// copy; an empty input returns nil.
//
// Tracks shorter than the longest one are treated as silence past their
// end.
func MixTracks(tracks [][]byte) []byte {
	if len(tracks) == 0 {
		return nil
	}
	if len(tracks) == 1 {
		out := make([]byte, len(tracks[0]))
		copy(out, tracks[0])
		return out
	}

	maxLen := 0
	for _, t := range tracks {
		if len(t) > maxLen {
			maxLen = len(t)
		}
	}
	out := make([]byte, maxLen)

	for i := 0; i+1 < maxLen; i += 2 {
		var sum int32
		for _, t := range tracks {
			if i+1 < len(t) {
				sum += int32(int16(t[i]) | int16(t[i+1])<<8)
			}
		}
		if sum > sampleMax {
			sum = sampleMax
		} else if sum < sampleMin {
			sum = sampleMin
		}
		out[i] = byte(sum)
		out[i+1] = byte(sum >> 8)
	}

	return out
}
