package identity

import (
	"sync"

	"github.com/connorcarey/bakra/internal/api"
)

// CurrentUser is the session identity: the matched roster member plus the
// family it belongs to and the email the user logged in with.
type CurrentUser struct {
	api.Member
	FamilyID string `json:"family_id"`
}

// Session is the single source of truth for who is using the app right now.
// It holds in-memory state only; it never triggers network calls or view
// transitions itself, callers do that after mutating it. Safe for concurrent
// use.
type Session struct {
	mu          sync.RWMutex
	currentUser *CurrentUser
}

// NewSession creates a logged-out session.
func NewSession() *Session {
	return &Session{}
}

// SetCurrentUser replaces the session identity. No validation happens here;
// the login flow validates before calling.
func (s *Session) SetCurrentUser(user *CurrentUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = user
}

// Logout clears the session identity. Components holding authenticated reads
// must treat a nil identity as a signal to stop issuing them.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = nil
}

// Current returns the session identity, or false when logged out.
func (s *Session) Current() (*CurrentUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil, false
	}
	return s.currentUser, true
}

// IsLoggedIn reports whether a session identity is set.
func (s *Session) IsLoggedIn() bool {
	_, ok := s.Current()
	return ok
}
