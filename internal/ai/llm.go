// Package ai generates the bot's flavor text: roasts, match
// commentary, and speech. Text generation runs through
// github.com/mozilla-ai/any-llm-go so the backing provider is a config
// choice; everything degrades to canned lines when no provider is
// configured.
package ai

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// Request is one completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer is the text-generation seam; [LLM] is the real
// implementation.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// LLM generates text through an any-llm-go backend.
type LLM struct {
	backend anyllmlib.Provider
	model   string
}

var _ Completer = (*LLM)(nil)

// NewLLM creates an LLM for the given provider name, one of "groq",
// "openai" or "ollama". Without an API key option the backend falls
// back to its usual environment variable.
func NewLLM(providerName, model string, opts ...anyllmlib.Option) (*LLM, error) {
	if model == "" {
		return nil, fmt.Errorf("ai: model must not be empty")
	}

	var (
		backend anyllmlib.Provider
		err     error
	)
	switch strings.ToLower(providerName) {
	case "groq":
		backend, err = groq.New(opts...)
	case "openai":
		backend, err = anyllmoai.New(opts...)
	case "ollama":
		backend, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("ai: unsupported provider %q; supported: groq, openai, ollama", providerName)
	}
	if err != nil {
		return nil, fmt.Errorf("ai: create %q backend: %w", providerName, err)
	}

	return &LLM{backend: backend, model: model}, nil
}

// Complete implements [Completer].
func (l *LLM) Complete(ctx context.Context, req Request) (string, error) {
	messages := []anyllmlib.Message{}
	if req.System != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: req.User,
	})

	params := anyllmlib.CompletionParams{
		Model:    l.model,
		Messages: messages,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}

	resp, err := l.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("ai: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}
