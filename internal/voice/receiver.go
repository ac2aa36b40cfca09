package voice

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// silenceTimeout is how long a participant must be quiet before their
// current speaking burst is considered over.
const silenceTimeout = 2 * time.Second

// FrameSink consumes decoded PCM frames from the receive loop.
// Implemented by the capture tracker.
type FrameSink interface {
	// PushFrame delivers one decoded frame for the given user.
	PushFrame(userID, displayName string, pcm []byte)

	// EndStream marks the end of the user's current speaking burst
	// (silence timeout, speaking-stop, or decode error).
	EndStream(userID string)
}

// receiver drains one voice connection's Opus packets, demuxes them by
// SSRC, decodes to PCM, and feeds the sink. Each SSRC gets its own
// decoder and silence timer; an error on one stream ends only that
// stream.
type receiver struct {
	vc      *discordgo.VoiceConnection
	sink    FrameSink
	resolve func(userID string) string

	mu       sync.Mutex
	ssrcUser map[uint32]string

	done      chan struct{}
	closeOnce sync.Once
}

func newReceiver(vc *discordgo.VoiceConnection, sink FrameSink, resolve func(string) string) *receiver {
	r := &receiver{
		vc:       vc,
		sink:     sink,
		resolve:  resolve,
		ssrcUser: make(map[uint32]string),
		done:     make(chan struct{}),
	}

	// Speaking updates are the only place Discord ties an SSRC to a
	// user ID; packets alone carry just the SSRC.
	vc.AddHandler(r.handleSpeakingUpdate)

	go r.run()
	return r
}

// stop shuts the receive loop down and seals any open bursts.
func (r *receiver) stop() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *receiver) handleSpeakingUpdate(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	if su.UserID == "" {
		return
	}
	r.mu.Lock()
	r.ssrcUser[uint32(su.SSRC)] = su.UserID
	r.mu.Unlock()
}

// userFor maps an SSRC to a user ID, falling back to the SSRC itself
// when no speaking update has arrived yet.
func (r *receiver) userFor(ssrc uint32) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID, ok := r.ssrcUser[ssrc]; ok {
		return userID
	}
	return strconv.FormatUint(uint64(ssrc), 10)
}

func (r *receiver) run() {
	decoders := make(map[uint32]*opusDecoder)
	timers := make(map[uint32]*time.Timer)
	names := make(map[uint32]string)

	defer func() {
		for ssrc, t := range timers {
			t.Stop()
			r.sink.EndStream(r.userFor(ssrc))
		}
	}()

	for {
		select {
		case <-r.done:
			return
		case pkt, ok := <-r.vc.OpusRecv:
			if !ok {
				return
			}
			if pkt == nil {
				continue
			}

			ssrc := pkt.SSRC

			dec, exists := decoders[ssrc]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("voice: create decoder", "ssrc", ssrc, "error", err)
					continue
				}
				decoders[ssrc] = dec
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				// One broken stream must not disturb the others: seal
				// this user's burst and drop the decoder so the next
				// packet starts fresh.
				slog.Warn("voice: opus decode error", "ssrc", ssrc, "error", err)
				r.sink.EndStream(r.userFor(ssrc))
				delete(decoders, ssrc)
				if t := timers[ssrc]; t != nil {
					t.Stop()
					delete(timers, ssrc)
				}
				continue
			}

			userID := r.userFor(ssrc)
			name, cached := names[ssrc]
			if !cached && r.resolve != nil {
				name = r.resolve(userID)
				names[ssrc] = name
			}

			r.sink.PushFrame(userID, name, pcm)

			if t, ok := timers[ssrc]; ok {
				t.Reset(silenceTimeout)
			} else {
				timers[ssrc] = time.AfterFunc(silenceTimeout, func() {
					r.sink.EndStream(r.userFor(ssrc))
				})
			}
		}
	}
}
