package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/leadcapture/lead"
)

func TestMemorySaveAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		l := lead.Lead{
			ID:          fmt.Sprintf("id-%d", i),
			Name:        "Ana",
			Email:       fmt.Sprintf("a%d@b.com", i),
			Industry:    lead.IndustryTechnology,
			SubmittedAt: now,
		}
		if err := m.SaveLead(ctx, l); err != nil {
			t.Fatalf("SaveLead: %v", err)
		}
	}

	got, err := m.ListLeads(ctx)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "id-0" {
		t.Errorf("order not preserved: first = %s", got[0].ID)
	}
}

func TestMemoryDuplicateEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	l := lead.Lead{ID: "a", Email: "a@b.com"}
	if err := m.SaveLead(ctx, l); err != nil {
		t.Fatalf("first save: %v", err)
	}

	err := m.SaveLead(ctx, lead.Lead{ID: "b", Email: "a@b.com"})
	if !IsDuplicate(err) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Fatal("duplicate error should unwrap to ErrDuplicate")
	}

	got, _ := m.ListLeads(ctx)
	if len(got) != 1 {
		t.Fatalf("duplicate must not be stored, len = %d", len(got))
	}
}

func TestIsDuplicateNil(t *testing.T) {
	if IsDuplicate(nil) {
		t.Error("nil is not a duplicate")
	}
	if IsDuplicate(errors.New("boom")) {
		t.Error("arbitrary error is not a duplicate")
	}
}
