package session

import (
	"sync"
)

// State is the in-memory mirror of the persisted session: the auth fields UI
// code reads synchronously. Apply and Reset are the only mutators so the
// invariant "no credential, no derived state" cannot be broken piecemeal.
type State struct {
	mu              sync.RWMutex
	loggedIn        bool
	role            string
	user            User
	hasSubscription bool
	appliedPrograms map[string]string
	authProvider    string
	founderRole     string
}

func NewState() *State {
	return &State{appliedPrograms: map[string]string{}}
}

// Apply mirrors a granted session into memory.
func (s *State) Apply(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = sess.LoggedIn
	s.role = sess.Role
	s.user = sess.User
	s.hasSubscription = sess.HasSubscription
	s.appliedPrograms = map[string]string{}
	for k, v := range sess.AppliedPrograms {
		s.appliedPrograms[k] = v
	}
	s.authProvider = sess.AuthProvider
	s.founderRole = sess.FounderRole
}

// Reset returns every field to its logged-out default.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
	s.role = ""
	s.user = User{}
	s.hasSubscription = false
	s.appliedPrograms = map[string]string{}
	s.authProvider = ""
	s.founderRole = ""
}

func (s *State) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *State) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *State) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *State) HasSubscription() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSubscription
}

// Snapshot returns a copy of the in-memory fields as a Session with no token.
func (s *State) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	programs := make(map[string]string, len(s.appliedPrograms))
	for k, v := range s.appliedPrograms {
		programs[k] = v
	}
	return Session{
		LoggedIn:        s.loggedIn,
		Role:            s.role,
		User:            s.user,
		HasSubscription: s.hasSubscription,
		AppliedPrograms: programs,
		AuthProvider:    s.authProvider,
		FounderRole:     s.founderRole,
	}
}
