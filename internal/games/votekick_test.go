package games

import (
	"errors"
	"testing"
	"time"
)

func newTestKicks() (*VoteKicks, *tick) {
	clk := &tick{t: time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)}
	return NewVoteKicks(WithClock(clk.now)), clk
}

var kickTarget = Member{ID: "t1", Username: "griefer"}

func TestVoteKicks_StartValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		initiator string
		target    Member
		voters    int
		wantErr   error
	}{
		{"too few voters", "u1", kickTarget, 2, ErrTooFewVoters},
		{"bot target", "u1", Member{ID: "b1", Username: "roshan", Bot: true}, 5, ErrTargetIsBot},
		{"self kick", "t1", kickTarget, 5, ErrSelfKick},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v, _ := newTestKicks()
			_, err := v.Start("g1", tc.initiator, tc.target, tc.voters)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequiredVotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		voters, want int
	}{
		{3, 2},
		{4, 3},
		{5, 3},
		{6, 4},
		{9, 5},
	}
	for _, tc := range tests {
		if got := RequiredVotes(tc.voters); got != tc.want {
			t.Errorf("RequiredVotes(%d) = %d, want %d", tc.voters, got, tc.want)
		}
	}
}

func TestVoteKicks_InitiatorVoteCounts(t *testing.T) {
	t.Parallel()

	v, _ := newTestKicks()
	kick, err := v.Start("g1", "u1", kickTarget, 3)
	if err != nil {
		t.Fatal(err)
	}
	if kick.Votes() != 1 {
		t.Errorf("votes after start = %d, want 1", kick.Votes())
	}
	if _, _, err := v.Vote("g1", "u1"); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("initiator revote error = %v, want ErrAlreadyVoted", err)
	}
}

func TestVoteKicks_MajorityPasses(t *testing.T) {
	t.Parallel()

	v, _ := newTestKicks()
	if _, err := v.Start("g1", "u1", kickTarget, 5); err != nil {
		t.Fatal(err)
	}

	_, passed, err := v.Vote("g1", "u2")
	if err != nil || passed {
		t.Fatalf("second vote passed=%v err=%v, want pending", passed, err)
	}
	kick, passed, err := v.Vote("g1", "u3")
	if err != nil || !passed {
		t.Fatalf("third vote passed=%v err=%v, want passed", passed, err)
	}
	if kick.Target.ID != "t1" {
		t.Errorf("passed kick target = %q", kick.Target.ID)
	}
	if v.Get("g1") != nil {
		t.Error("passed kick still registered")
	}
}

func TestVoteKicks_Expiry(t *testing.T) {
	t.Parallel()

	v, clk := newTestKicks()
	if _, err := v.Start("g1", "u1", kickTarget, 5); err != nil {
		t.Fatal(err)
	}
	clk.advance(DefaultKickDuration + time.Second)

	if _, _, err := v.Vote("g1", "u2"); !errors.Is(err, ErrNoKick) {
		t.Errorf("vote after expiry error = %v, want ErrNoKick", err)
	}
	if _, err := v.Start("g1", "u2", kickTarget, 5); err != nil {
		t.Errorf("Start() after expiry: %v", err)
	}
}

func TestVoteKicks_OnePerGuild(t *testing.T) {
	t.Parallel()

	v, _ := newTestKicks()
	if _, err := v.Start("g1", "u1", kickTarget, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Start("g1", "u2", kickTarget, 5); !errors.Is(err, ErrKickActive) {
		t.Errorf("second Start() error = %v, want ErrKickActive", err)
	}
}

func TestMatchMember(t *testing.T) {
	t.Parallel()

	roster := []Member{
		{ID: "1", Username: "Roshan_TTV", Nick: ""},
		{ID: "2", Username: "pudgemain", Nick: "Butcher"},
		{ID: "3", Username: "xXmidlaneXx", Nick: "Kreygasm"},
	}

	tests := []struct {
		name   string
		query  string
		wantID string
		found  bool
	}{
		{"exact nick", "butcher", "2", true},
		{"username prefix", "rosh", "1", true},
		{"substring", "midlane", "3", true},
		{"typo within edit distance", "roshn_ttv", "1", true},
		{"nothing close", "zzzzqqqq", "", false},
		{"empty query", "", "", false},
	}
	for _, tc := range tests {
		got, ok := MatchMember(tc.query, roster)
		if ok != tc.found {
			t.Errorf("%s: MatchMember(%q) found = %v, want %v", tc.name, tc.query, ok, tc.found)
			continue
		}
		if ok && got.ID != tc.wantID {
			t.Errorf("%s: MatchMember(%q) = %q, want %q", tc.name, tc.query, got.ID, tc.wantID)
		}
	}
}

func TestMember_DisplayName(t *testing.T) {
	t.Parallel()

	if got := (Member{Username: "a", Nick: "b"}).DisplayName(); got != "b" {
		t.Errorf("DisplayName = %q, want nick", got)
	}
	if got := (Member{Username: "a"}).DisplayName(); got != "a" {
		t.Errorf("DisplayName = %q, want username", got)
	}
}
