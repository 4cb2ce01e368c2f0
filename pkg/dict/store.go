// Package dict provides the reference dictionaries behind the
// isDictionaryValue operator: named sets of admissible values, loaded once
// and queried read-only during document checks.
package dict

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Store holds named dictionaries in memory. Values are trimmed and
// normalized to NFC on both sides of a lookup: dictionary exports and
// scenario documents disagree about surrounding whitespace and composed vs
// decomposed Cyrillic more often than one would hope.
type Store struct {
	mu    sync.RWMutex
	dicts map[string]map[string]struct{}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{dicts: make(map[string]map[string]struct{})}
}

// Register adds values to the named dictionary, creating it if needed
func (s *Store) Register(name string, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.dicts[name]
	if !ok {
		set = make(map[string]struct{}, len(values))
		s.dicts[name] = set
	}
	for _, v := range values {
		set[canonical(v)] = struct{}{}
	}
}

// Has reports whether the named dictionary exists
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dicts[name]
	return ok
}

// Contains reports whether the named dictionary holds the value
func (s *Store) Contains(name, value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.dicts[name]
	if !ok {
		return false
	}
	_, ok = set[canonical(value)]
	return ok
}

func canonical(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// Names returns the dictionary names in sorted order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.dicts))
	for name := range s.dicts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of values in the named dictionary
func (s *Store) Size(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dicts[name])
}

// Merge copies every dictionary from other into s
func (s *Store) Merge(other *Store) {
	if s == other {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	for name, set := range other.dicts {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		s.Register(name, values...)
	}
}
