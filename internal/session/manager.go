package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"merchant-console/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultIdleTimeout = 5 * time.Minute

const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "upstream_unauthorized"
	ReasonIdle         = "idle_timeout"
	ReasonShutdown     = "shutdown"
)

var (
	ErrExpired       = errors.New("session expired")
	ErrEmptyIdentity = errors.New("identity has no token")
)

type watcher struct {
	timer    *time.Timer
	deadline time.Time
}

// Manager is the single writer of identities. It arms one inactivity watcher
// per live session and releases it on every end path.
type Manager struct {
	store  Store
	idle   time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	watchers map[string]*watcher
	closed   bool
}

func NewManager(store Store, idle time.Duration, logger zerolog.Logger) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		store:    store,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		watchers: make(map[string]*watcher),
	}
}

func (m *Manager) IdleTimeout() time.Duration { return m.idle }

// Start stores a fresh session for id and arms its watcher.
func (m *Manager) Start(ctx context.Context, id Identity) (Record, error) {
	if id.Empty() {
		return Record{}, ErrEmptyIdentity
	}

	now := m.now()
	rec := Record{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("failed to start session: %w", err)
	}

	m.arm(rec.ID, m.idle)
	m.logger.Info().Str("role", string(id.Role)).Msg("Session started")
	return rec, nil
}

// Resume loads a session by id. Sessions idle past the window are ended on
// the spot; sessions loaded from a shared store get a watcher on first use.
func (m *Manager) Resume(ctx context.Context, id string) (Record, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}

	idleFor := m.now().Sub(rec.LastSeen)
	if idleFor >= m.idle {
		m.End(ctx, id, ReasonIdle)
		return Record{}, ErrExpired
	}

	m.mu.Lock()
	_, armed := m.watchers[id]
	m.mu.Unlock()
	if !armed {
		m.arm(id, m.idle-idleFor)
	}
	return rec, nil
}

// Touch records activity and pushes the idle deadline back.
func (m *Manager) Touch(ctx context.Context, id string) error {
	now := m.now()

	m.mu.Lock()
	w, ok := m.watchers[id]
	if ok {
		w.deadline = now.Add(m.idle)
		w.timer.Reset(m.idle)
	}
	m.mu.Unlock()

	if !ok {
		return ErrExpired
	}
	return m.store.Touch(ctx, id, now)
}

// End clears the identity and releases the watcher. Ending an unknown or
// already ended session is not an error and is only logged once.
func (m *Manager) End(ctx context.Context, id, reason string) {
	m.mu.Lock()
	w, ok := m.watchers[id]
	if ok {
		w.timer.Stop()
		delete(m.watchers, id)
	}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Error().Err(err).Str("reason", reason).Msg("Failed to delete session")
	}
	if !ok {
		m.logger.Debug().Str("reason", reason).Msg("Session already ended")
		return
	}
	metrics.SessionEnded(reason)
	m.logger.Info().Str("reason", reason).Msg("Session ended")
}

// EndFromContext ends the session carried by ctx, if any.
func (m *Manager) EndFromContext(ctx context.Context, reason string) {
	rec, ok := FromContext(ctx)
	if !ok {
		return
	}
	m.End(context.WithoutCancel(ctx), rec.ID, reason)
}

// Close disarms every watcher. Stored sessions survive so a restarted
// process backed by the same store can resume them.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.watchers {
		w.timer.Stop()
		delete(m.watchers, id)
		metrics.SessionEnded(ReasonShutdown)
	}
	m.closed = true
}

// Active reports how many sessions currently have an armed watcher.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

type purger interface {
	PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeIdle drops stored sessions older than the idle window when the store
// supports it.
func (m *Manager) PurgeIdle(ctx context.Context) (int64, error) {
	p, ok := m.store.(purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeIdle(ctx, m.now().Add(-m.idle))
}

func (m *Manager) arm(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if _, ok := m.watchers[id]; ok {
		return
	}
	w := &watcher{deadline: m.now().Add(d)}
	w.timer = time.AfterFunc(d, func() { m.expire(id, w) })
	m.watchers[id] = w
	metrics.SessionStarted()
}

func (m *Manager) expire(id string, w *watcher) {
	m.mu.Lock()
	current, ok := m.watchers[id]
	if !ok || current != w {
		m.mu.Unlock()
		return
	}
	if remaining := w.deadline.Sub(m.now()); remaining > 0 {
		// Touched while this callback was already scheduled.
		w.timer.Reset(remaining)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.End(context.Background(), id, ReasonIdle)
}
