package ai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Roast generation settings. The high temperature is intentional:
// repetitive roasts die fast in a small community.
const (
	RoastTemperature = 1.2
	RoastMaxTokens   = 300
)

// roastSystemPrompts keys the roast persona by language tag.
var roastSystemPrompts = map[string]string{
	"en-us": "You are the resident trash-talker of a Dota 2 Discord server. " +
		"Write a short, savage but good-natured roast of the named player. " +
		"Lean on Dota 2 culture: ranks, hero picks, farming priority, buyback " +
		"timing, not buying wards. Two or three sentences, no hashtags, no " +
		"preamble, just the roast.",
	"pt-br": "Você é o zoeiro oficial de um servidor de Discord de Dota 2. " +
		"Escreva uma zoação curta e impiedosa, mas de boa, sobre o jogador " +
		"indicado. Use a cultura do Dota 2: medalha, picks, prioridade de " +
		"farm, buyback errado, nunca comprar ward. Duas ou três frases, sem " +
		"hashtags, sem preâmbulo, só a zoação.",
}

// commentarySystemPrompts keys the match-commentary persona by language
// tag.
var commentarySystemPrompts = map[string]string{
	"en-us": "You are a sarcastic Dota 2 caster summarizing one match result " +
		"for the player's Discord friends. One or two sentences, punchy, " +
		"reference the stats you are given. No preamble.",
	"pt-br": "Você é um caster sarcástico de Dota 2 resumindo o resultado de " +
		"uma partida para os amigos do jogador no Discord. Uma ou duas " +
		"frases, direto, usando as estatísticas fornecidas. Sem preâmbulo.",
}

// fallbackRoasts are used when no LLM provider is configured. %s is the
// target's display name.
var fallbackRoasts = []string{
	"%s queues mid, picks Pudge, and still blames the support wards.",
	"%s has more games than a casino and the same win rate as a coin flip.",
	"The enemy team doesn't ban heroes against %s. They don't need to.",
	"%s's map awareness ends at the edge of their own lane.",
	"%s buys back with 4k gold down and calls it a tempo play.",
	"Somewhere a courier is still waiting for %s to remember it exists.",
}

// Roaster produces roasts and match commentary, via the LLM when one is
// configured and from canned templates otherwise.
type Roaster struct {
	llm      Completer
	language string
	rng      *rand.Rand
}

// NewRoaster creates a Roaster. llm may be nil, which forces the canned
// fallback; language falls back to en-us when the tag is unknown.
func NewRoaster(llm Completer, language string, rng *rand.Rand) *Roaster {
	if _, ok := roastSystemPrompts[language]; !ok {
		language = "en-us"
	}
	return &Roaster{llm: llm, language: language, rng: rng}
}

// Roast generates a roast of the named player. extra carries optional
// caller-supplied ammunition, like their last match stats.
func (r *Roaster) Roast(ctx context.Context, displayName, extra string) (string, error) {
	if r.llm == nil {
		return r.fallback(displayName), nil
	}

	user := "Roast this player: " + displayName
	if extra != "" {
		user += "\nMaterial you can use: " + extra
	}
	out, err := r.llm.Complete(ctx, Request{
		System:      roastSystemPrompts[r.language],
		User:        user,
		Temperature: RoastTemperature,
		MaxTokens:   RoastMaxTokens,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		// A flaky provider should not kill the joke.
		return r.fallback(displayName), nil
	}
	return out, nil
}

// Commentary generates a one-liner about a finished match. With no LLM
// configured it returns an empty string so the caller can skip the
// flavor line entirely.
func (r *Roaster) Commentary(ctx context.Context, matchSummary string) (string, error) {
	if r.llm == nil {
		return "", nil
	}
	out, err := r.llm.Complete(ctx, Request{
		System:      commentarySystemPrompts[r.language],
		User:        matchSummary,
		Temperature: 1.0,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("ai: match commentary: %w", err)
	}
	return out, nil
}

func (r *Roaster) fallback(displayName string) string {
	tpl := fallbackRoasts[r.rng.IntN(len(fallbackRoasts))]
	return fmt.Sprintf(tpl, displayName)
}
