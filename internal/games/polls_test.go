package games

import (
	"errors"
	"testing"
	"time"
)

type tick struct {
	t time.Time
}

func (c *tick) now() time.Time          { return c.t }
func (c *tick) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPolls() (*Polls, *tick) {
	clk := &tick{t: time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)}
	return NewPolls(WithClock(clk.now)), clk
}

func TestParsePollInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		question string
		options  []string
	}{
		{"question only", "Mid or feed?", "Mid or feed?", nil},
		{"with options", "Pick | mid | feed", "Pick", []string{"mid", "feed"}},
		{"blank options skipped", "Pick | mid | | feed ", "Pick", []string{"mid", "feed"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q, opts := ParsePollInput(tc.raw)
			if q != tc.question {
				t.Errorf("question = %q, want %q", q, tc.question)
			}
			if len(opts) != len(tc.options) {
				t.Fatalf("options = %v, want %v", opts, tc.options)
			}
			for i := range opts {
				if opts[i] != tc.options[i] {
					t.Errorf("option[%d] = %q, want %q", i, opts[i], tc.options[i])
				}
			}
		})
	}
}

func TestPolls_DefaultsToYesNo(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	poll, err := p.Start("g1", "u1", "Scrim tonight?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(poll.Options) != 2 || poll.Options[0] != "Yes" || poll.Options[1] != "No" {
		t.Errorf("options = %v", poll.Options)
	}
}

func TestPolls_OptionCountLimits(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Start("g1", "u1", "q", []string{"only one"}); !errors.Is(err, ErrTooManyOpts) {
		t.Errorf("one option error = %v, want ErrTooManyOpts", err)
	}
	ten := make([]string, 10)
	for i := range ten {
		ten[i] = "opt"
	}
	if _, err := p.Start("g1", "u1", "q", ten); !errors.Is(err, ErrTooManyOpts) {
		t.Errorf("ten options error = %v, want ErrTooManyOpts", err)
	}
}

func TestPolls_OnePerGuild(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Start("g1", "u1", "first", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Start("g1", "u2", "second", nil); !errors.Is(err, ErrPollActive) {
		t.Errorf("second Start() error = %v, want ErrPollActive", err)
	}
	if _, err := p.Start("g2", "u2", "other guild", nil); err != nil {
		t.Errorf("other guild Start(): %v", err)
	}
}

func TestPolls_RevoteMovesTheVote(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Start("g1", "u1", "q", []string{"mid", "feed"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Vote("g1", "u2", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Vote("g1", "u2", 2); err != nil {
		t.Fatal(err)
	}

	poll, err := p.Close("g1")
	if err != nil {
		t.Fatal(err)
	}
	res := poll.Results()
	if res[0].Votes != 0 || res[1].Votes != 1 {
		t.Errorf("results = %+v", res)
	}
	if res[0].Winner || !res[1].Winner {
		t.Errorf("winner flags = %+v", res)
	}
}

func TestPolls_VoteValidation(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Vote("g1", "u1", 1); !errors.Is(err, ErrNoPoll) {
		t.Errorf("vote without poll error = %v, want ErrNoPoll", err)
	}
	if _, err := p.Start("g1", "u1", "q", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Vote("g1", "u1", 3); !errors.Is(err, ErrBadOption) {
		t.Errorf("out of range vote error = %v, want ErrBadOption", err)
	}
	if _, err := p.Vote("g1", "u1", 0); !errors.Is(err, ErrBadOption) {
		t.Errorf("zero vote error = %v, want ErrBadOption", err)
	}
}

func TestPolls_ExpiryFreesTheGuild(t *testing.T) {
	t.Parallel()

	p, clk := newTestPolls()
	if _, err := p.Start("g1", "u1", "q", nil); err != nil {
		t.Fatal(err)
	}
	clk.advance(DefaultPollDuration + time.Second)

	if got := p.Get("g1"); got != nil {
		t.Error("expired poll still reported live")
	}
	if _, err := p.Vote("g1", "u2", 1); !errors.Is(err, ErrNoPoll) {
		t.Errorf("vote after expiry error = %v, want ErrNoPoll", err)
	}
	if _, err := p.Start("g1", "u2", "next", nil); err != nil {
		t.Errorf("Start() after expiry: %v", err)
	}
}

func TestPoll_TiedResultsMarkAllLeaders(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Start("g1", "u1", "q", []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	p.Vote("g1", "u1", 1)
	p.Vote("g1", "u2", 2)

	poll, _ := p.Close("g1")
	res := poll.Results()
	if !res[0].Winner || !res[1].Winner || res[2].Winner {
		t.Errorf("winner flags = %+v", res)
	}
}

func TestPoll_NoVotesNoWinner(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolls()
	if _, err := p.Start("g1", "u1", "q", nil); err != nil {
		t.Fatal(err)
	}
	poll, _ := p.Close("g1")
	for _, r := range poll.Results() {
		if r.Winner {
			t.Errorf("option %q marked winner with zero votes", r.Label)
		}
	}
}
