// Package games holds the ephemeral social-game state machines: the
// betting ledger, chat polls, votekicks, and squad forming. Each game
// guards its own state with a mutex; expiry is checked lazily against
// an injectable clock so tests never sleep.
package games

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StartingPoints is the balance every bettor begins with.
const StartingPoints = 1000

// Betting errors surfaced to chat.
var (
	ErrBetExists          = errors.New("games: you already have an active bet")
	ErrNoBet              = errors.New("games: you have no active bet")
	ErrNoActiveBets       = errors.New("games: there are no active bets")
	ErrInsufficientPoints = errors.New("games: not enough points")
	ErrBadChoice          = errors.New(`games: choice must be "yes" or "no"`)
	ErrBadAmount          = errors.New("games: amount must be a positive number")
)

// Account is one user's lifetime betting record.
type Account struct {
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
}

// Bet is one user's open wager on the next match outcome.
type Bet struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Amount      int    `json:"amount"`
	Choice      string `json:"choice"` // "yes" or "no"
}

// ledgerDoc is the persisted document shape.
type ledgerDoc struct {
	Accounts map[string]*Account `json:"accounts"`
	Active   map[string]*Bet     `json:"active_bets"`
}

// LedgerStore persists the betting document. Implemented by store.File.
type LedgerStore interface {
	Load(v any) error
	Save(v any) error
}

// Settled is the outcome of one bet after a resolve.
type Settled struct {
	DisplayName string
	Amount      int
	Won         bool
}

// LeaderboardEntry is one row of the points ranking.
type LeaderboardEntry struct {
	DisplayName string
	Points      int
	Wins        int
	Losses      int
}

// Bets is the betting game: a persistent points ledger plus the set of
// open wagers. Wagers debit or credit only on resolve.
//
// Bets is safe for concurrent use.
type Bets struct {
	mu       sync.Mutex
	store    LedgerStore
	accounts map[string]*Account
	active   map[string]*Bet
}

// NewBets loads the ledger from the store. A missing file starts empty.
func NewBets(store LedgerStore) (*Bets, error) {
	doc := ledgerDoc{}
	if err := store.Load(&doc); err != nil {
		return nil, fmt.Errorf("games: load bet ledger: %w", err)
	}
	if doc.Accounts == nil {
		doc.Accounts = make(map[string]*Account)
	}
	if doc.Active == nil {
		doc.Active = make(map[string]*Bet)
	}
	return &Bets{store: store, accounts: doc.Accounts, active: doc.Active}, nil
}

// account returns the user's account, creating it with the starting
// balance on first touch. Caller must hold b.mu.
func (b *Bets) account(userID, displayName string) *Account {
	acc := b.accounts[userID]
	if acc == nil {
		acc = &Account{Points: StartingPoints}
		b.accounts[userID] = acc
	}
	if displayName != "" {
		acc.DisplayName = displayName
	}
	return acc
}

// persist writes the ledger. Caller must hold b.mu.
func (b *Bets) persist() error {
	return b.store.Save(ledgerDoc{Accounts: b.accounts, Active: b.active})
}

// Place opens a wager for the user. The amount is validated against the
// current balance but only moves on resolve.
func (b *Bets) Place(userID, displayName string, amount int, choice string) error {
	choice = strings.ToLower(choice)
	if choice != "yes" && choice != "no" {
		return ErrBadChoice
	}
	if amount <= 0 {
		return ErrBadAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.active[userID]; exists {
		return ErrBetExists
	}
	acc := b.account(userID, displayName)
	if amount > acc.Points {
		return ErrInsufficientPoints
	}

	b.active[userID] = &Bet{
		UserID:      userID,
		DisplayName: displayName,
		Amount:      amount,
		Choice:      choice,
	}
	return b.persist()
}

// Cancel withdraws the user's open wager.
func (b *Bets) Cancel(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.active[userID]; !exists {
		return ErrNoBet
	}
	delete(b.active, userID)
	return b.persist()
}

// Resolve settles every open wager against the given outcome ("yes" or
// "no") and clears them. Winners gain their stake, losers forfeit it;
// balances never go below zero.
func (b *Bets) Resolve(outcome string) ([]Settled, error) {
	outcome = strings.ToLower(outcome)
	if outcome != "yes" && outcome != "no" {
		return nil, ErrBadChoice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.active) == 0 {
		return nil, ErrNoActiveBets
	}

	var settled []Settled
	for userID, bet := range b.active {
		acc := b.account(userID, bet.DisplayName)
		won := bet.Choice == outcome
		if won {
			acc.Points += bet.Amount
			acc.Wins++
		} else {
			acc.Points -= bet.Amount
			if acc.Points < 0 {
				acc.Points = 0
			}
			acc.Losses++
		}
		settled = append(settled, Settled{
			DisplayName: bet.DisplayName,
			Amount:      bet.Amount,
			Won:         won,
		})
	}
	b.active = make(map[string]*Bet)

	sort.Slice(settled, func(i, j int) bool {
		return settled[i].DisplayName < settled[j].DisplayName
	})
	return settled, b.persist()
}

// Balance returns the user's current points, creating the account if
// needed so first-time bettors see the starting balance.
func (b *Bets) Balance(userID, displayName string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := b.account(userID, displayName)
	return acc.Points, b.persist()
}

// Active returns the open wagers sorted by display name.
func (b *Bets) Active() []Bet {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Bet, 0, len(b.active))
	for _, bet := range b.active {
		out = append(out, *bet)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// Leaderboard returns up to n accounts ranked by points.
func (b *Bets) Leaderboard(n int) []LeaderboardEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]LeaderboardEntry, 0, len(b.accounts))
	for _, acc := range b.accounts {
		out = append(out, LeaderboardEntry{
			DisplayName: acc.DisplayName,
			Points:      acc.Points,
			Wins:        acc.Wins,
			Losses:      acc.Losses,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
