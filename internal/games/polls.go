package games

import (
	"errors"
	"strings"
	"time"
)

// Poll limits. Discord number emoji reactions cap the option count.
const (
	MinPollOptions = 2
	MaxPollOptions = 9

	// DefaultPollDuration is how long a poll accepts votes.
	DefaultPollDuration = 2 * time.Minute
)

// Poll errors surfaced to chat.
var (
	ErrPollActive  = errors.New("games: a poll is already running")
	ErrNoPoll      = errors.New("games: no poll is running")
	ErrBadOption   = errors.New("games: that option does not exist")
	ErrTooManyOpts = errors.New("games: polls support 2 to 9 options")
	ErrPollClosed  = errors.New("games: the poll has already closed")
)

// Poll is one running question. Votes are keyed by user so revoting
// moves the vote instead of double counting.
type Poll struct {
	Question  string
	Options   []string
	CreatorID string
	ExpiresAt time.Time

	votes map[string]int // userID -> option index
}

// OptionResult is one option's tally after a poll closes.
type OptionResult struct {
	Label  string
	Votes  int
	Winner bool
}

// Results tallies the poll. Every option with the top non-zero count is
// marked a winner, so ties report every leader.
func (p *Poll) Results() []OptionResult {
	counts := make([]int, len(p.Options))
	for _, idx := range p.votes {
		counts[idx]++
	}
	top := 0
	for _, c := range counts {
		if c > top {
			top = c
		}
	}

	out := make([]OptionResult, len(p.Options))
	for i, label := range p.Options {
		out[i] = OptionResult{
			Label:  label,
			Votes:  counts[i],
			Winner: top > 0 && counts[i] == top,
		}
	}
	return out
}

// TotalVotes returns how many users have voted.
func (p *Poll) TotalVotes() int {
	return len(p.votes)
}

// Polls runs at most one poll per guild.
//
// Polls is safe for concurrent use.
type Polls struct {
	gameState[*Poll]
	duration time.Duration
}

// NewPolls creates the poll registry.
func NewPolls(opts ...Option) *Polls {
	p := &Polls{duration: DefaultPollDuration}
	p.init(opts...)
	return p
}

// ParsePollInput splits the raw command text on "|" into a question and
// its options. "Question" alone yields a Yes/No poll.
func ParsePollInput(raw string) (question string, options []string) {
	parts := strings.Split(raw, "|")
	question = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		if opt := strings.TrimSpace(part); opt != "" {
			options = append(options, opt)
		}
	}
	return question, options
}

// Start opens a poll for the guild. An empty option list falls back to
// Yes/No; otherwise 2 to 9 options are required.
func (p *Polls) Start(guildID, creatorID, question string, options []string) (*Poll, error) {
	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}
	if len(options) < MinPollOptions || len(options) > MaxPollOptions {
		return nil, ErrTooManyOpts
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing := p.liveLocked(guildID); existing != nil {
		return nil, ErrPollActive
	}

	poll := &Poll{
		Question:  question,
		Options:   options,
		CreatorID: creatorID,
		ExpiresAt: p.now().Add(p.duration),
		votes:     make(map[string]int),
	}
	p.active[guildID] = poll
	return poll, nil
}

// Vote records or moves the user's vote. choice is 1-based to match the
// numbers shown in chat.
func (p *Polls) Vote(guildID, userID string, choice int) (*Poll, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	poll := p.liveLocked(guildID)
	if poll == nil {
		return nil, ErrNoPoll
	}
	if choice < 1 || choice > len(poll.Options) {
		return nil, ErrBadOption
	}
	poll.votes[userID] = choice - 1
	return poll, nil
}

// Close ends the guild's poll and returns it for the final tally. An
// expired poll can still be closed; only a missing one is an error.
func (p *Polls) Close(guildID string) (*Poll, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	poll := p.active[guildID]
	if poll == nil {
		return nil, ErrNoPoll
	}
	delete(p.active, guildID)
	return poll, nil
}

// Get returns the guild's live poll, or nil.
func (p *Polls) Get(guildID string) *Poll {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveLocked(guildID)
}

// liveLocked returns the guild's poll, lazily dropping it once expired.
// Caller must hold p.mu.
func (p *Polls) liveLocked(guildID string) *Poll {
	poll := p.active[guildID]
	if poll == nil {
		return nil
	}
	if !p.now().Before(poll.ExpiresAt) {
		delete(p.active, guildID)
		return nil
	}
	return poll
}
