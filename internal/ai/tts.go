package ai

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// MaxSpeechChars bounds !tts input; longer requests cost real money and
// hog the voice channel.
const MaxSpeechChars = 500

// ErrSpeechTooLong is returned for input over [MaxSpeechChars].
var ErrSpeechTooLong = fmt.Errorf("ai: speech input exceeds %d characters", MaxSpeechChars)

// Speaker turns text into MP3 speech through the OpenAI audio API.
type Speaker struct {
	client openai.Client
	voice  openai.AudioSpeechNewParamsVoice
}

// NewSpeaker creates a Speaker. An empty voice defaults to onyx, the
// closest thing the API has to an announcer.
func NewSpeaker(apiKey, voice string) *Speaker {
	if voice == "" {
		// The SDK documents "onyx" as a valid voice but defines no
		// constant for it.
		voice = string(openai.AudioSpeechNewParamsVoice("onyx"))
	}
	return &Speaker{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		voice:  openai.AudioSpeechNewParamsVoice(voice),
	}
}

// Synthesize writes spoken MP3 audio for text to path.
func (s *Speaker) Synthesize(ctx context.Context, text, path string) error {
	if len(text) > MaxSpeechChars {
		return ErrSpeechTooLong
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("ai: synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ai: create %q: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("ai: write %q: %w", path, err)
	}
	return nil
}
