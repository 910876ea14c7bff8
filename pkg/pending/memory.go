package pending

import "sync"

// MemStore is an in-memory Store. It journals every operation so tests can
// assert the exact load/save/clear sequence a flow performed.
type MemStore struct {
	mu      sync.Mutex
	ctx     Context
	present bool
	journal []string

	LoadErr  error
	SaveErr  error
	ClearErr error
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Load() (Context, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, "load")
	if s.LoadErr != nil {
		return Context{}, false, s.LoadErr
	}
	return s.ctx, s.present, nil
}

func (s *MemStore) Save(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, "save "+c.JobID)
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.ctx = c
	s.present = true
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, "clear")
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.ctx = Context{}
	s.present = false
	return nil
}

// Journal returns a copy of the operations applied so far.
func (s *MemStore) Journal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.journal...)
}

// Seed installs a record without journaling, for test setup.
func (s *MemStore) Seed(c Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = c
	s.present = true
}
