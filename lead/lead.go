// lead/lead.go
// Package lead defines the lead-capture domain types: the transient form
// input and the immutable stored record.
package lead

import (
	"strings"
	"time"

	"github.com/dalemusser/leadcapture/textutil"
)

// Industry is the closed set of industry options offered on the form.
type Industry string

const (
	IndustryTechnology    Industry = "technology"
	IndustryFinance       Industry = "finance"
	IndustryHealthcare    Industry = "healthcare"
	IndustryRetail        Industry = "retail"
	IndustryManufacturing Industry = "manufacturing"
	IndustryEducation     Industry = "education"
	IndustryOther         Industry = "other"
)

// Industries lists all valid options, in display order.
var Industries = []Industry{
	IndustryTechnology,
	IndustryFinance,
	IndustryHealthcare,
	IndustryRetail,
	IndustryManufacturing,
	IndustryEducation,
	IndustryOther,
}

// Valid reports whether i is one of the offered options.
func (i Industry) Valid() bool {
	for _, v := range Industries {
		if i == v {
			return true
		}
	}
	return false
}

// FormInput is one submission attempt as entered by the user. It is
// transient; a stored Lead is built from it via NewLead after normalization.
type FormInput struct {
	Name     string   `json:"name" validate:"required,min=2,max=100"`
	Email    string   `json:"email" validate:"required,email,max=254"`
	Industry Industry `json:"industry" validate:"required,oneof=technology finance healthcare retail manufacturing education other"`
}

// Normalize returns a copy with the email lower-cased and trimmed and the
// name trimmed. Normalization is idempotent.
func (f FormInput) Normalize() FormInput {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return f
}

// Lead is a captured lead. Records are created once on a successful
// submission and never mutated afterward.
type Lead struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Industry    Industry  `json:"industry"`
	Country     string    `json:"country,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewLead builds a Lead from normalized input. id is the request identifier
// of the admitting submission attempt; now is injected so callers control the
// clock.
func NewLead(id string, in FormInput, now time.Time) Lead {
	in = in.Normalize()
	return Lead{
		ID:          id,
		Name:        in.Name,
		Email:       in.Email,
		Industry:    in.Industry,
		SubmittedAt: now.UTC(),
	}
}

// SearchKey returns a case- and diacritic-folded key for the lead's name,
// for display-insensitive listing and filtering.
func (l Lead) SearchKey() string {
	return textutil.Fold(l.Name)
}
