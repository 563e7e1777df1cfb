package worker

import (
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// CacheStore is the set of named cache partitions. Entries never expire on
// their own; whole partitions are deleted when a new worker version
// activates.
type CacheStore struct {
	mu         sync.RWMutex
	partitions map[string]*gocache.Cache
}

func NewCacheStore() *CacheStore {
	return &CacheStore{partitions: make(map[string]*gocache.Cache)}
}

// Open returns the named partition, creating it if needed.
func (s *CacheStore) Open(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partitions[name]; !ok {
		s.partitions[name] = gocache.New(gocache.NoExpiration, 0)
	}
}

// Put stores a response under key in the named partition, creating the
// partition if needed.
func (s *CacheStore) Put(partition string, key string, resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.partitions[partition]
	if !ok {
		c = gocache.New(gocache.NoExpiration, 0)
		s.partitions[partition] = c
	}
	c.Set(key, resp, gocache.NoExpiration)
}

// Match looks the key up across every partition and returns the first hit.
func (s *CacheStore) Match(key string) (*Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.sortedNames() {
		if v, ok := s.partitions[name].Get(key); ok {
			return v.(*Response), true
		}
	}
	return nil, false
}

// Names lists the existing partitions.
func (s *CacheStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedNames()
}

// Delete drops a whole partition and all its entries.
func (s *CacheStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions, name)
}

// Has reports whether the named partition exists.
func (s *CacheStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.partitions[name]
	return ok
}

// Len returns the number of entries in a partition, 0 when absent.
func (s *CacheStore) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.partitions[name]; ok {
		return c.ItemCount()
	}
	return 0
}

// sortedNames keeps partition iteration deterministic. Callers hold the lock.
func (s *CacheStore) sortedNames() []string {
	names := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
