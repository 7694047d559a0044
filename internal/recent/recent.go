// Package recent keeps the short most-recent-first list of search queries.
package recent

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// Key is the store key the list is persisted under.
const Key = "recentSearches"

// Max is the number of queries kept.
const Max = 5

// Push returns list with query moved (or inserted) at the front, without
// duplicates and truncated to Max. Blank queries leave the list unchanged.
func Push(list []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return list
	}
	out := make([]string, 0, Max)
	out = append(out, query)
	for _, q := range list {
		if q == query {
			continue
		}
		if len(out) == Max {
			break
		}
		out = append(out, q)
	}
	return out
}

// Store persists the list as a JSON array in a flat diskv directory.
type Store struct {
	mu sync.Mutex
	d  *diskv.Diskv
}

// Open returns a store rooted at dir.
func Open(dir string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

// List returns the stored queries, most recent first. A missing or
// unreadable entry yields an empty list.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []string {
	if !s.d.Has(Key) {
		return []string{}
	}
	val, err := s.d.Read(Key)
	if err != nil {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(val, &list); err != nil {
		return []string{}
	}
	if len(list) > Max {
		list = list[:Max]
	}
	return list
}

// Add records query and returns the updated list.
func (s *Store) Add(query string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load()
	if strings.TrimSpace(query) == "" {
		return current, nil
	}
	next := Push(current, query)
	data, err := json.Marshal(next)
	if err != nil {
		return current, err
	}
	if err := s.d.Write(Key, data); err != nil {
		return current, err
	}
	return next, nil
}

// Clear removes every stored query.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.d.Has(Key) {
		return nil
	}
	return s.d.Erase(Key)
}
