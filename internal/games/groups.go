package games

import (
	"errors"
	"math/rand/v2"
)

// Roles are the five Dota positions handed out by a full-squad role
// shuffle, in position order.
var Roles = []string{"Hard Carry", "Mid", "Offlane", "Soft Support", "Hard Support"}

// Group errors surfaced to chat.
var (
	ErrGroupActive  = errors.New("games: a group is already forming in this channel")
	ErrNoGroup      = errors.New("games: no group is forming in this channel")
	ErrAlreadyIn    = errors.New("games: you already joined this group")
	ErrNotInGroup   = errors.New("games: you are not in this group")
	ErrGroupFull    = errors.New("games: the group is full")
	ErrNotOrganizer = errors.New("games: only the organizer can do that")
	ErrBadGroupSize = errors.New("games: group size must be 4 or 5")
)

// Group is one forming squad, bound to the text channel it was opened
// in. The organizer is always the first member.
type Group struct {
	ChannelID string
	Size      int
	Members   []Member
}

// OrganizerID returns the creator's user ID.
func (g *Group) OrganizerID() string {
	return g.Members[0].ID
}

// Full reports whether the squad reached its target size.
func (g *Group) Full() bool {
	return len(g.Members) >= g.Size
}

// Open returns how many slots are left.
func (g *Group) Open() int {
	return g.Size - len(g.Members)
}

// clone returns a copy so callers can format without holding the lock.
func (g *Group) clone() *Group {
	cp := *g
	cp.Members = append([]Member(nil), g.Members...)
	return &cp
}

// SplitTeams shuffles the members and deals them into two teams,
// alternating so odd counts differ by at most one.
func (g *Group) SplitTeams(rng *rand.Rand) (radiant, dire []Member) {
	shuffled := append([]Member(nil), g.Members...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i, m := range shuffled {
		if i%2 == 0 {
			radiant = append(radiant, m)
		} else {
			dire = append(dire, m)
		}
	}
	return radiant, dire
}

// Assignment pairs a member with a position.
type Assignment struct {
	Member Member
	Role   string
}

// AssignRoles shuffles the members over the five positions. Squads
// smaller than five leave the trailing positions unfilled.
func (g *Group) AssignRoles(rng *rand.Rand) []Assignment {
	shuffled := append([]Member(nil), g.Members...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	if n > len(Roles) {
		n = len(Roles)
	}
	out := make([]Assignment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Assignment{Member: shuffled[i], Role: Roles[i]})
	}
	return out
}

// Groups runs at most one forming squad per text channel.
//
// Groups is safe for concurrent use.
type Groups struct {
	gameState[*Group]
}

// NewGroups creates the squad registry.
func NewGroups(opts ...Option) *Groups {
	g := &Groups{}
	g.init(opts...)
	return g
}

// Create opens a squad of the given size with the organizer as its
// first member.
func (g *Groups) Create(channelID string, organizer Member, size int) (*Group, error) {
	if size != 4 && size != 5 {
		return nil, ErrBadGroupSize
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.active[channelID]; exists {
		return nil, ErrGroupActive
	}
	grp := &Group{
		ChannelID: channelID,
		Size:      size,
		Members:   []Member{organizer},
	}
	g.active[channelID] = grp
	return grp.clone(), nil
}

// Join adds the member to the channel's squad. full reports whether
// this join completed the squad.
func (g *Groups) Join(channelID string, m Member) (grp *Group, full bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.active[channelID]
	if cur == nil {
		return nil, false, ErrNoGroup
	}
	for _, existing := range cur.Members {
		if existing.ID == m.ID {
			return nil, false, ErrAlreadyIn
		}
	}
	if cur.Full() {
		return nil, false, ErrGroupFull
	}
	cur.Members = append(cur.Members, m)
	return cur.clone(), cur.Full(), nil
}

// Leave removes the user from the squad. When the organizer leaves, or
// the last member does, the squad disbands and disbanded is true.
func (g *Groups) Leave(channelID, userID string) (grp *Group, disbanded bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.active[channelID]
	if cur == nil {
		return nil, false, ErrNoGroup
	}
	idx := -1
	for i, m := range cur.Members {
		if m.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false, ErrNotInGroup
	}
	if idx == 0 {
		delete(g.active, channelID)
		return cur.clone(), true, nil
	}
	cur.Members = append(cur.Members[:idx], cur.Members[idx+1:]...)
	return cur.clone(), false, nil
}

// Kick lets the organizer remove a member from the squad.
func (g *Groups) Kick(channelID, byID, targetID string) (*Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.active[channelID]
	if cur == nil {
		return nil, ErrNoGroup
	}
	if cur.OrganizerID() != byID {
		return nil, ErrNotOrganizer
	}
	for i, m := range cur.Members {
		if m.ID == targetID && i > 0 {
			cur.Members = append(cur.Members[:i], cur.Members[i+1:]...)
			return cur.clone(), nil
		}
	}
	return nil, ErrNotInGroup
}

// Cancel lets the organizer disband the squad.
func (g *Groups) Cancel(channelID, byID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.active[channelID]
	if cur == nil {
		return ErrNoGroup
	}
	if cur.OrganizerID() != byID {
		return ErrNotOrganizer
	}
	delete(g.active, channelID)
	return nil
}

// Get returns the channel's forming squad, or nil.
func (g *Groups) Get(channelID string) *Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.active[channelID]
	if cur == nil {
		return nil
	}
	return cur.clone()
}
