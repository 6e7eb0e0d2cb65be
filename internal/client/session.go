package client

import (
	"sync"

	"fintrack/internal/core"
)

// Session holds the bearer token and the signed-in user. It starts empty,
// is filled by Login or Signup and emptied by Logout. Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  core.PublicUser
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Set(token string, user core.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Session) setUser(user core.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = core.PublicUser{}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user and whether there is one.
func (s *Session) User() (core.PublicUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}
