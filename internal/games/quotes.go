package games

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Quote errors surfaced to chat.
var (
	ErrNoQuotes   = errors.New("games: no quotes saved yet")
	ErrEmptyQuote = errors.New("games: the quote text is empty")
)

// Quote is one saved community quote.
type Quote struct {
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type quotesDoc struct {
	Quotes []Quote `json:"quotes"`
}

// Quotes is the persistent quote book.
//
// Quotes is safe for concurrent use.
type Quotes struct {
	mu     sync.Mutex
	store  LedgerStore
	quotes []Quote
	now    func() time.Time
}

// NewQuotes loads the quote book from the store.
func NewQuotes(store LedgerStore, opts ...Option) (*Quotes, error) {
	doc := quotesDoc{}
	if err := store.Load(&doc); err != nil {
		return nil, fmt.Errorf("games: load quotes: %w", err)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Quotes{store: store, quotes: doc.Quotes, now: o.now}, nil
}

// Add saves a quote. ParseQuoteInput handles the `"text" - author` chat
// form; here both fields arrive already split.
func (q *Quotes) Add(text, author, addedBy string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyQuote
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.quotes = append(q.quotes, Quote{
		Text:    text,
		Author:  strings.TrimSpace(author),
		AddedBy: addedBy,
		AddedAt: q.now(),
	})
	if err := q.store.Save(quotesDoc{Quotes: q.quotes}); err != nil {
		return 0, err
	}
	return len(q.quotes), nil
}

// Random picks a quote and its 1-based number.
func (q *Quotes) Random(rng *rand.Rand) (Quote, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.quotes) == 0 {
		return Quote{}, 0, ErrNoQuotes
	}
	i := rng.IntN(len(q.quotes))
	return q.quotes[i], i + 1, nil
}

// Get returns the quote with the given 1-based number.
func (q *Quotes) Get(n int) (Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n < 1 || n > len(q.quotes) {
		return Quote{}, fmt.Errorf("games: quote #%d does not exist", n)
	}
	return q.quotes[n-1], nil
}

// Count returns how many quotes are saved.
func (q *Quotes) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.quotes)
}

// ParseQuoteInput splits `some text - author` into its parts; the
// author is optional.
func ParseQuoteInput(raw string) (text, author string) {
	if idx := strings.LastIndex(raw, " - "); idx >= 0 {
		return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+3:])
	}
	return strings.TrimSpace(raw), ""
}
