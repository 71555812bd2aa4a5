package services

import (
	"strings"
	"sync"
)

// Inflight tracks which keyed operations are running. A key can only be held
// once; a second caller gets ErrInProgress instead of waiting.
type Inflight struct {
	held sync.Map
}

func NewInflight() *Inflight {
	return &Inflight{}
}

func InflightKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func (g *Inflight) Do(key string, fn func() error) error {
	if _, loaded := g.held.LoadOrStore(key, struct{}{}); loaded {
		return ErrInProgress
	}
	defer g.held.Delete(key)
	return fn()
}

func (g *Inflight) Loading(key string) bool {
	_, ok := g.held.Load(key)
	return ok
}
