// store/store.go
// Package store persists captured leads. Every backend enforces a uniqueness
// constraint on the normalized email and reports violations as ErrDuplicate
// so callers can distinguish the accepted duplicate-submission case from real
// failures.
package store

import (
	"context"
	"errors"

	"github.com/dalemusser/leadcapture/lead"
)

// ErrDuplicate is returned by SaveLead when a lead with the same email
// already exists. Check with errors.Is.
var ErrDuplicate = errors.New("store: duplicate lead")

// LeadStore is the persistence collaborator for the submission workflow.
type LeadStore interface {
	// SaveLead inserts the lead. Returns ErrDuplicate (possibly wrapped) on a
	// uniqueness conflict, any other error on failure.
	SaveLead(ctx context.Context, l lead.Lead) error

	// ListLeads returns all stored leads, oldest first.
	ListLeads(ctx context.Context) ([]lead.Lead, error)

	// Ping reports whether the backend is reachable. Used by health checks.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// IsDuplicate reports whether err is a duplicate-lead conflict.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
