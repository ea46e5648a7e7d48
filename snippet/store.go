package snippet

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store is the in-memory snippet table for one session. Source text and
// duplicate counters live in the same map so they cannot drift apart.
// Entries are never removed.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewStore returns a store seeded with the given built-in snippets. Built-ins
// are inserted in sorted name order so Names is stable.
func NewStore(builtins map[string]string) *Store {
	s := &Store{entries: make(map[string]*Entry)}
	for _, name := range sortedKeys(builtins) {
		s.put(name, builtins[name])
	}
	return s
}

// Get returns the source stored under name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return "", false
	}
	return e.Source, true
}

// Has reports whether name has an entry.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[name]
	return ok
}

// Entry returns a copy of the entry stored under name.
func (s *Store) Entry(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Put inserts or overwrites the source for name. The duplicate counter of an
// existing entry is left alone.
func (s *Store) Put(name, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(name, source)
}

// Duplicate forks name. current is written back to name first so edits made
// before the fork are kept, then stored again under a new name derived from
// the per-name counter ("name #k"). The new name is returned.
//
// A derived name can already exist when a fork of a fork happens to spell the
// same string. That entry is never overwritten: a unique suffix is added.
func (s *Store) Duplicate(name, current string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(name, current)
	e := s.entries[name]
	e.Duplicates++

	newName := fmt.Sprintf("%s #%d", name, e.Duplicates)
	if _, taken := s.entries[newName]; taken {
		newName = fmt.Sprintf("%s~%s", newName, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	s.put(newName, current)
	return newName
}

// Names returns every entry name in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// put requires s.mu held for writing.
func (s *Store) put(name, source string) {
	if e, ok := s.entries[name]; ok {
		e.Source = source
		return
	}
	s.entries[name] = &Entry{Source: source}
	s.order = append(s.order, name)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
