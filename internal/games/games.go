package games

import (
	"sync"
	"time"
)

// Option configures a game registry.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the time source, letting tests control expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// gameState is the shared core of the keyed, single-instance games: at
// most one live value per key (guild or channel), guarded by a mutex,
// with a swappable clock for expiry checks.
type gameState[T any] struct {
	mu     sync.Mutex
	active map[string]T
	now    func() time.Time
}

func (g *gameState[T]) init(opts ...Option) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	g.active = make(map[string]T)
	g.now = o.now
}
