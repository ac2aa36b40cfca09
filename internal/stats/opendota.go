// Package stats fetches Dota match data from the OpenDota API and
// shapes it for chat. Only the free, unauthenticated endpoints are
// used, so the client stays well under the rate limits a single guild
// can generate.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/roshanbot/roshan/internal/resilience"
)

const defaultBaseURL = "https://api.opendota.com/api"

// steamIDOffset converts 64-bit Steam IDs to the 32-bit account IDs
// OpenDota keys players by.
const steamIDOffset = 76561197960265728

// ErrNoMatches means the player has no visible recent matches, usually
// because match history is private.
var ErrNoMatches = errors.New("stats: no recent matches found")

// gameModes maps OpenDota game_mode IDs to display names. Unlisted
// modes fall back to a numeric label.
var gameModes = map[int]string{
	1:  "All Pick",
	2:  "Captains Mode",
	3:  "Random Draft",
	4:  "Single Draft",
	5:  "All Random",
	12: "Least Played",
	16: "Captains Draft",
	18: "Ability Draft",
	22: "All Pick Ranked",
	23: "Turbo",
}

// GameModeName returns the display name for an OpenDota game_mode ID.
func GameModeName(mode int) string {
	if name, ok := gameModes[mode]; ok {
		return name
	}
	return fmt.Sprintf("Mode %d", mode)
}

// Steam32 normalizes a numeric Steam ID to the 32-bit account ID. Both
// 64-bit and already-converted IDs are accepted.
func Steam32(id string) (int64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stats: %q is not a numeric Steam ID", id)
	}
	if n > steamIDOffset {
		n -= steamIDOffset
	}
	return int64(n), nil
}

// hero is one row of /heroes.
type hero struct {
	ID            int    `json:"id"`
	LocalizedName string `json:"localized_name"`
}

// RecentMatch is one row of /players/{id}/recentMatches, trimmed to the
// fields the bot reports on.
type RecentMatch struct {
	MatchID    int64 `json:"match_id"`
	PlayerSlot int   `json:"player_slot"`
	RadiantWin bool  `json:"radiant_win"`
	Duration   int   `json:"duration"`
	GameMode   int   `json:"game_mode"`
	HeroID     int   `json:"hero_id"`
	StartTime  int64 `json:"start_time"`
	Kills      int   `json:"kills"`
	Deaths     int   `json:"deaths"`
	Assists    int   `json:"assists"`
}

// Radiant reports which side the player was on; slots 0-127 are
// Radiant, 128-255 Dire.
func (m RecentMatch) Radiant() bool {
	return m.PlayerSlot < 128
}

// Won reports whether the player's side won.
func (m RecentMatch) Won() bool {
	return m.Radiant() == m.RadiantWin
}

// KDA formats the kill/death/assist line.
func (m RecentMatch) KDA() string {
	return fmt.Sprintf("%d/%d/%d", m.Kills, m.Deaths, m.Assists)
}

// DurationString formats the match length as m:ss.
func (m RecentMatch) DurationString() string {
	return fmt.Sprintf("%d:%02d", m.Duration/60, m.Duration%60)
}

// Played returns the match start time.
func (m RecentMatch) Played() time.Time {
	return time.Unix(m.StartTime, 0)
}

// Profile is the public half of /players/{id}.
type Profile struct {
	Profile struct {
		PersonaName string `json:"personaname"`
	} `json:"profile"`
	RankTier int `json:"rank_tier"`
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, mainly for
// tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to OpenDota. The hero list is fetched once and cached
// for the process lifetime; hero names change about never.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker

	heroMu sync.Mutex
	heroes map[int]string
}

// New creates a Client with a 10 second request timeout. A circuit
// breaker rejects requests for a while after repeated upstream
// failures, so commands fail fast instead of queueing on timeouts.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "opendota"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches path and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, path string, v any) error {
	return c.breaker.Execute(func() error {
		return c.doGet(ctx, path, v)
	})
}

func (c *Client) doGet(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("stats: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stats: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stats: GET %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("stats: decode %s: %w", path, err)
	}
	return nil
}

// HeroName resolves an OpenDota hero ID, fetching the hero list on
// first use.
func (c *Client) HeroName(ctx context.Context, heroID int) (string, error) {
	c.heroMu.Lock()
	defer c.heroMu.Unlock()

	if c.heroes == nil {
		var list []hero
		if err := c.get(ctx, "/heroes", &list); err != nil {
			return "", err
		}
		c.heroes = make(map[int]string, len(list))
		for _, h := range list {
			c.heroes[h.ID] = h.LocalizedName
		}
	}
	if name, ok := c.heroes[heroID]; ok {
		return name, nil
	}
	return fmt.Sprintf("Hero %d", heroID), nil
}

// RecentMatches returns the player's recent matches, newest first.
func (c *Client) RecentMatches(ctx context.Context, accountID int64, limit int) ([]RecentMatch, error) {
	var matches []RecentMatch
	path := fmt.Sprintf("/players/%d/recentMatches", accountID)
	if err := c.get(ctx, path, &matches); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LastMatch returns the player's most recent match.
func (c *Client) LastMatch(ctx context.Context, accountID int64) (RecentMatch, error) {
	matches, err := c.RecentMatches(ctx, accountID, 1)
	if err != nil {
		return RecentMatch{}, err
	}
	return matches[0], nil
}

// Player fetches the player's public profile.
func (c *Client) Player(ctx context.Context, accountID int64) (Profile, error) {
	var p Profile
	if err := c.get(ctx, fmt.Sprintf("/players/%d", accountID), &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// RankName renders OpenDota's rank_tier (tens digit medal, ones digit
// star) as a label like "Legend 3".
func RankName(tier int) string {
	medals := []string{"Uncalibrated", "Herald", "Guardian", "Crusader",
		"Archon", "Legend", "Ancient", "Divine", "Immortal"}
	medal := tier / 10
	star := tier % 10
	if medal <= 0 || medal >= len(medals) {
		return medals[0]
	}
	if medal == 8 || star == 0 {
		return medals[medal]
	}
	return fmt.Sprintf("%s %d", medals[medal], star)
}
