package games

import (
	"errors"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// Votekick tuning.
const (
	// DefaultKickDuration is how long a votekick collects votes.
	DefaultKickDuration = 60 * time.Second

	// MinKickVoters is the smallest voice channel a votekick can run in,
	// counting humans only.
	MinKickVoters = 3

	// matchThreshold is the minimum Jaro-Winkler similarity for a fuzzy
	// name match to count.
	matchThreshold = 0.6
)

// Votekick errors surfaced to chat.
var (
	ErrKickActive   = errors.New("games: a votekick is already running")
	ErrNoKick       = errors.New("games: no votekick is running")
	ErrAlreadyVoted = errors.New("games: you already voted")
	ErrTooFewVoters = errors.New("games: not enough people in the channel for a votekick")
	ErrTargetIsBot  = errors.New("games: bots cannot be votekicked")
	ErrNoMatch      = errors.New("games: nobody in the channel matches that name")
	ErrSelfKick     = errors.New("games: you cannot votekick yourself")
)

// Member is the slice of a guild member the games need: enough to match
// names against and address the user afterwards.
type Member struct {
	ID       string
	Username string
	Nick     string
	Bot      bool
}

// DisplayName prefers the guild nickname over the account name.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

// Kick is one running votekick.
type Kick struct {
	Target      Member
	InitiatorID string
	Required    int
	ExpiresAt   time.Time

	votes map[string]bool
}

// Votes returns how many votes have been cast.
func (k *Kick) Votes() int {
	return len(k.votes)
}

// VoteKicks runs at most one votekick per guild.
//
// VoteKicks is safe for concurrent use.
type VoteKicks struct {
	gameState[*Kick]
	duration time.Duration
}

// NewVoteKicks creates the votekick registry.
func NewVoteKicks(opts ...Option) *VoteKicks {
	v := &VoteKicks{duration: DefaultKickDuration}
	v.init(opts...)
	return v
}

// RequiredVotes is the majority needed among the given number of human
// voters.
func RequiredVotes(voters int) int {
	return voters/2 + 1
}

// Start opens a votekick against target. voters is the human headcount
// of the voice channel; the initiator's vote is counted immediately.
func (v *VoteKicks) Start(guildID, initiatorID string, target Member, voters int) (*Kick, error) {
	if voters < MinKickVoters {
		return nil, ErrTooFewVoters
	}
	if target.Bot {
		return nil, ErrTargetIsBot
	}
	if target.ID == initiatorID {
		return nil, ErrSelfKick
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if existing := v.liveLocked(guildID); existing != nil {
		return nil, ErrKickActive
	}

	kick := &Kick{
		Target:      target,
		InitiatorID: initiatorID,
		Required:    RequiredVotes(voters),
		ExpiresAt:   v.now().Add(v.duration),
		votes:       map[string]bool{initiatorID: true},
	}
	v.active[guildID] = kick
	return kick, nil
}

// Vote adds the user's vote. passed reports whether the majority was
// reached; the kick is removed from the registry once it passes.
func (v *VoteKicks) Vote(guildID, userID string) (kick *Kick, passed bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	kick = v.liveLocked(guildID)
	if kick == nil {
		return nil, false, ErrNoKick
	}
	if kick.votes[userID] {
		return nil, false, ErrAlreadyVoted
	}
	kick.votes[userID] = true

	if len(kick.votes) >= kick.Required {
		delete(v.active, guildID)
		return kick, true, nil
	}
	return kick, false, nil
}

// Clear drops the guild's votekick if one is running.
func (v *VoteKicks) Clear(guildID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.active, guildID)
}

// Get returns the guild's live votekick, or nil.
func (v *VoteKicks) Get(guildID string) *Kick {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.liveLocked(guildID)
}

// liveLocked returns the guild's votekick, lazily dropping it once
// expired. Caller must hold v.mu.
func (v *VoteKicks) liveLocked(guildID string) *Kick {
	kick := v.active[guildID]
	if kick == nil {
		return nil
	}
	if !v.now().Before(kick.ExpiresAt) {
		delete(v.active, guildID)
		return nil
	}
	return kick
}

// MatchMember resolves a typed name against the channel roster. Exact
// matches beat prefixes, prefixes beat substrings, and anything else
// falls back to Jaro-Winkler similarity so "rosh" still finds
// "Roshan_TTV".
func MatchMember(query string, members []Member) (Member, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return Member{}, false
	}

	var best Member
	bestScore := 0.0
	for _, m := range members {
		score := matchScore(query, strings.ToLower(m.Nick))
		if s := matchScore(query, strings.ToLower(m.Username)); s > score {
			score = s
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if bestScore < matchThreshold {
		return Member{}, false
	}
	return best, true
}

func matchScore(query, name string) float64 {
	if name == "" {
		return 0
	}
	switch {
	case name == query:
		return 1.0
	case strings.HasPrefix(name, query):
		return 0.9
	case strings.Contains(name, query):
		return 0.75
	}
	return matchr.JaroWinkler(query, name, false)
}
