// events/events.go
// Package events publishes lead-created events for downstream consumers
// (CRM sync, analytics). Publishing is best-effort: the submission workflow
// never fails because an event could not be delivered.
package events

import (
	"context"
	"time"

	"github.com/dalemusser/leadcapture/lead"
)

// LeadCreated is the event payload published when a lead is accepted.
type LeadCreated struct {
	RequestID   string    `json:"request_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Industry    string    `json:"industry"`
	Country     string    `json:"country,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// FromLead builds the event payload for a captured lead.
func FromLead(l lead.Lead) LeadCreated {
	return LeadCreated{
		RequestID:   l.ID,
		Name:        l.Name,
		Email:       l.Email,
		Industry:    string(l.Industry),
		Country:     l.Country,
		SubmittedAt: l.SubmittedAt,
	}
}

// Publisher delivers lead-created events.
type Publisher interface {
	PublishLeadCreated(ctx context.Context, ev LeadCreated) error
	Close() error
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) PublishLeadCreated(context.Context, LeadCreated) error { return nil }
func (Nop) Close() error                                          { return nil }
