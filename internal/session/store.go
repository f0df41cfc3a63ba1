package session

import "sync"

// Store holds sessions in memory behind a mutex. Each session has a single
// owner; reads hand out deep copies and writes go through Update so no caller
// ever holds a reference into the map.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string]*Session)}
}

// Put inserts or replaces a session.
func (s *Store) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := sess.Clone()
	s.data[sess.ID] = &clone
}

// Get returns a deep copy of the session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.Clone(), nil
}

// Update applies fn to the stored session under the lock.
func (s *Store) Update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return ErrNotFound
	}
	fn(sess)
	return nil
}

// Transition applies fn under the lock, letting fn reject the change. The
// check and the mutation share one critical section, so guards like the
// single-run rule cannot race with a concurrent caller.
func (s *Store) Transition(id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return ErrNotFound
	}
	return fn(sess)
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}
