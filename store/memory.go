// store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/leadcapture/lead"
)

// Memory is an in-process LeadStore for development and tests. The email
// uniqueness constraint is enforced the same way the database backends do,
// so workflow behavior is identical across backends.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]int
	leads   []lead.Lead
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byEmail: make(map[string]int)}
}

func (m *Memory) SaveLead(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[l.Email]; exists {
		return fmt.Errorf("email %s: %w", l.Email, ErrDuplicate)
	}
	m.byEmail[l.Email] = len(m.leads)
	m.leads = append(m.leads, l)
	return nil
}

func (m *Memory) ListLeads(_ context.Context) ([]lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]lead.Lead, len(m.leads))
	copy(out, m.leads)
	return out, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close(_ context.Context) error { return nil }
