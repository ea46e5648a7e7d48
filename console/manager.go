package console

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"demo-console/snippet"
)

// Options configures every session a Manager creates.
type Options struct {
	Builtins   map[string]string // snippets present from the start
	Catalog    []string          // selectable names fetched on demand
	Initial    string            // demo selected when a session starts, if any
	Fetcher    snippet.Fetcher
	Runtime    RuntimeFactory
	Scrollback int
	Logger     *zap.Logger
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	log      *zap.Logger
}

func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		log:      log.Named("console"),
	}
}

// Create starts a session: a fresh snippet table seeded with the built-ins,
// an initialised runtime and a running event loop.
func (m *Manager) Create() (*Session, error) {
	id := uuid.New().String()
	log := m.log.With(zap.String("session", id))
	now := time.Now()

	s := &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		store:      snippet.NewStore(m.opts.Builtins),
		log:        log,
		events:     make(chan func()),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.loader = snippet.NewLoader(s.store, m.opts.Fetcher, log)
	s.editor = newEditor(s.emit)
	s.term = newTerminal(m.opts.Scrollback, s.emit)
	s.sink = newSink(s.term)

	rt, err := m.opts.Runtime(s.sink)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("init runtime: %w", err)
	}
	s.rt = rt
	s.ctrl = newController(s.editor, s.sink, rt, log)

	s.options = m.options(s.store)

	go s.loop()

	if m.opts.Initial != "" {
		// A built-in is shown before Create returns; a fetched demo
		// appears when its load completes.
		s.Select(m.opts.Initial)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	log.Info("session created")
	return s, nil
}

// Catalog returns the options a new session starts with: built-ins first,
// then catalog names not already listed.
func (m *Manager) Catalog() []Option {
	return m.options(snippet.NewStore(m.opts.Builtins))
}

func (m *Manager) options(store *snippet.Store) []Option {
	var opts []Option
	for _, name := range store.Names() {
		opts = append(opts, Option{Label: name, Key: name})
	}
	for _, name := range m.opts.Catalog {
		if !store.Has(name) && !hasOption(opts, name) {
			opts = append(opts, Option{Label: name, Key: name})
		}
	}
	return opts
}

// List returns session summaries, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	list := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s.Info())
	}
	m.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Kill closes and forgets a session. It is what a page unload triggers.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.log.Info("session closed")
	return s.Close()
}

// Reap closes sessions idle for longer than maxIdle and returns how many it
// closed. Pages that vanish without an unload request end up here.
func (m *Manager) Reap(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if err := m.Kill(id); err == nil {
			n++
		}
	}
	if n > 0 {
		m.log.Info("reaped idle sessions", zap.Int("count", n))
	}
	return n
}

// CloseAll tears down every session, for server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.log.Warn("session close failed", zap.String("session", s.ID), zap.Error(err))
		}
	}
}

func hasOption(opts []Option, key string) bool {
	for _, o := range opts {
		if o.Key == key {
			return true
		}
	}
	return false
}
