// session/session.go
// Package session holds the shared per-session application state observed by
// the rest of the service: the list of leads captured this session and the
// "submitted" flag that drives the success view.
package session

import (
	"sync"

	"github.com/dalemusser/leadcapture/lead"
)

// Session is safe for concurrent use. Records are append-only; Reset is the
// only operation that discards state.
type Session struct {
	mu        sync.RWMutex
	leads     []lead.Lead
	submitted bool
}

func New() *Session {
	return &Session{}
}

// AddLead appends a captured lead to the session list.
func (s *Session) AddLead(l lead.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, l)
}

// SetSubmitted flips the submitted flag.
func (s *Session) SetSubmitted(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = v
}

// Submitted reports whether the current session has a completed submission.
func (s *Session) Submitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitted
}

// Leads returns a copy of the session's lead list.
func (s *Session) Leads() []lead.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lead.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// Count returns the number of leads captured this session.
func (s *Session) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}

// Reset clears the lead list and the submitted flag, for "submit another".
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = nil
	s.submitted = false
}
