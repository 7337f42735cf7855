package clienttoken

import "sync"

// Store owns the current decoded client token. Single-writer many-reader:
// only Swap replaces the snapshot, and it replaces it as a whole. Every step
// that reads session state goes through Current, so a required action's new
// token is observed by all subsequent steps.
type Store struct {
	mu      sync.RWMutex
	current Decoded
	set     bool
}

// NewStore decodes raw and seeds the store with it.
func NewStore(raw string) (*Store, error) {
	s := &Store{}
	if err := s.Swap(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// Swap decodes raw and atomically replaces the current token.
func (s *Store) Swap(raw string) error {
	decoded, err := Decode(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = decoded
	s.set = true
	s.mu.Unlock()
	return nil
}

// Current returns the last decoded token. ok is false before the first
// successful Swap.
func (s *Store) Current() (Decoded, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.set
}
