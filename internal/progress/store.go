package progress

// Store is the persistence abstraction for run state. The Tracker serializes
// all access, so implementations need not be safe for concurrent use.
type Store interface {
	GetRun(manifest string) (*Run, bool)
	SetRun(r *Run)
	ListManifests() []string
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	runs map[string]*Run
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*Run),
	}
}

// GetRun implements Store.GetRun.
func (s *InMemoryStore) GetRun(manifest string) (*Run, bool) {
	r, ok := s.runs[manifest]
	return r, ok
}

// SetRun implements Store.SetRun.
func (s *InMemoryStore) SetRun(r *Run) {
	s.runs[r.Manifest] = r
}

// ListManifests implements Store.ListManifests.
func (s *InMemoryStore) ListManifests() []string {
	names := make([]string, 0, len(s.runs))
	for name := range s.runs {
		names = append(names, name)
	}
	return names
}
