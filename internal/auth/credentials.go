// Package auth owns the authenticated-identity lifecycle: the bearer
// credential store, the identity-provider client, and the session tracker
// that bridges provider notifications into application state.
package auth

import "sync"

// CredentialStore holds the current bearer token. It has exactly one writer
// role (the session tracker / provider bridge) and one reader role (the
// request dispatcher). Writes replace the whole value.
type CredentialStore struct {
	mu    sync.RWMutex
	token string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set replaces the stored token.
func (s *CredentialStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Get returns the stored token, empty when unauthenticated.
func (s *CredentialStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear removes the stored token.
func (s *CredentialStore) Clear() {
	s.Set("")
}
