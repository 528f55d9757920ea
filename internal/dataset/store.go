package dataset

import "sync"

// Snapshot is a consistent view of the store at one generation.
// Records in Original are shared and must not be mutated.
type Snapshot struct {
	Original   []Record
	FileName   string
	Criteria   Criteria
	Generation uint64
}

// Empty reports whether no dataset is loaded.
func (s Snapshot) Empty() bool {
	return len(s.Original) == 0
}

// Store holds the ingested dataset and the current filter criteria.
// Every mutation replaces the snapshot wholesale.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore creates an empty store with unrestricted criteria.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Replace installs a new dataset and resets the criteria.
func (s *Store) Replace(fileName string, records []Record) {
	owned := append([]Record(nil), records...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Original:   owned,
		FileName:   fileName,
		Generation: s.snap.Generation + 1,
	}
}

// Reset drops the dataset and the criteria.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Generation: s.snap.Generation + 1}
}

// SetCriteria replaces the active criteria. The last write wins.
func (s *Store) SetCriteria(c Criteria) {
	c = c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	next.Criteria = c
	next.Generation++
	s.snap = next
}
