// Package session keeps one AnalysisController per browser session.
//
// Each visitor gets their own busy flag, result and history, exactly as if
// they had the app to themselves. Controllers are created lazily on first
// use and swept after sitting idle for longer than the TTL.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/devhelper-ai/internal/service"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *service.AnalysisController

// EvictFunc is called after a session is swept, e.g. to drop its stored history.
type EvictFunc func(ctx context.Context, sessionID string) error

type entry struct {
	controller *service.AnalysisController
	lastSeen   time.Time
}

// Manager maps session IDs to controllers.
type Manager struct {
	factory Factory
	ttl     time.Duration
	onEvict EvictFunc
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a Manager. onEvict may be nil.
func NewManager(factory Factory, ttl time.Duration, onEvict EvictFunc, logger *slog.Logger) *Manager {
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		onEvict:  onEvict,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Controller returns the session's controller, creating it on first use.
// Every call counts as activity for the idle sweep.
func (m *Manager) Controller(sessionID string) *service.AnalysisController {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{controller: m.factory(sessionID)}
		m.sessions[sessionID] = e
	}
	e.lastSeen = m.now()
	return e.controller
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were dropped. A session with a call in flight is kept regardless.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []string
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) && !e.controller.Busy() {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	// Hooks run outside the lock — they may touch storage.
	for _, id := range expired {
		if m.onEvict == nil {
			continue
		}
		if err := m.onEvict(ctx, id); err != nil {
			m.logger.Warn("failed to clean up session",
				slog.String("session", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if len(expired) > 0 {
		m.logger.Info("idle sessions swept", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
