package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/leadcapture/guard"
	"github.com/dalemusser/leadcapture/lead"
	"github.com/dalemusser/leadcapture/notify"
	"github.com/dalemusser/leadcapture/session"
	"github.com/dalemusser/leadcapture/store"
	"github.com/dalemusser/leadcapture/submit"
)

type stubMailer struct {
	err    error
	sent   int
	lastID string
}

func (m *stubMailer) SendConfirmation(_ context.Context, _ lead.FormInput, requestID string) error {
	m.sent++
	m.lastID = requestID
	return m.err
}

type failingPingStore struct {
	*store.Memory
}

func (f *failingPingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

type apiFixture struct {
	handler *Handler
	mailer  *stubMailer
	store   store.LeadStore
	session *session.Session
	server  http.Handler
}

func newAPIFixture(t *testing.T, opts ...func(*apiFixture)) *apiFixture {
	t.Helper()

	f := &apiFixture{
		mailer:  &stubMailer{},
		store:   store.NewMemory(),
		session: session.New(),
	}
	for _, opt := range opts {
		opt(f)
	}

	g := guard.New(guard.WithCooldown(time.Millisecond))
	sub := submit.New(g, f.store, f.mailer, f.session, notify.Nop{}, zap.NewNop())
	f.handler = NewHandler(sub, f.session, f.store, zap.NewNop())
	f.server = f.handler.Router(nil)
	return f
}

func postLead(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validBody = `{"name":"Ada Lovelace","email":"ada@example.com","industry":"technology"}`

func TestSubmitEndpointAccepted(t *testing.T) {
	f := newAPIFixture(t)

	rec := postLead(t, f.server, validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res submit.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != submit.StatusAccepted {
		t.Errorf("status = %q, want %q", res.Status, submit.StatusAccepted)
	}
	if res.RequestID == "" {
		t.Error("request id missing from accepted result")
	}
	if res.Lead == nil || res.Lead.Email != "ada@example.com" {
		t.Errorf("lead = %+v, want captured lead", res.Lead)
	}
	if f.mailer.sent != 1 {
		t.Errorf("mailer sent = %d, want 1", f.mailer.sent)
	}
	if !f.session.Submitted() {
		t.Error("session not marked submitted")
	}
}

func TestSubmitEndpointValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := postLead(t, f.server, `{"name":"A","email":"not-an-email","industry":"piracy"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var res submit.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, field := range []string{"name", "email", "industry"} {
		if len(res.FieldErrors[field]) == 0 {
			t.Errorf("missing field errors for %q: %v", field, res.FieldErrors)
		}
	}
	if f.mailer.sent != 0 {
		t.Errorf("mailer sent = %d, want 0 for invalid input", f.mailer.sent)
	}
}

func TestSubmitEndpointMalformedJSON(t *testing.T) {
	f := newAPIFixture(t)

	rec := postLead(t, f.server, `{"name": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitEndpointCooldownDuplicate(t *testing.T) {
	f := &apiFixture{
		mailer:  &stubMailer{},
		store:   store.NewMemory(),
		session: session.New(),
	}
	g := guard.New() // default 3s cooldown
	sub := submit.New(g, f.store, f.mailer, f.session, notify.Nop{}, zap.NewNop())
	f.handler = NewHandler(sub, f.session, f.store, zap.NewNop())
	f.server = f.handler.Router(nil)

	if rec := postLead(t, f.server, validBody); rec.Code != http.StatusOK {
		t.Fatalf("first submit status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec := postLead(t, f.server, `{"name":"Ada Lovelace","email":"ada2@example.com","industry":"finance"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("rapid second submit status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	var res submit.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != submit.StatusDuplicate {
		t.Errorf("status = %q, want %q", res.Status, submit.StatusDuplicate)
	}
	if f.mailer.sent != 1 {
		t.Errorf("mailer sent = %d, want 1", f.mailer.sent)
	}
}

func TestSubmitEndpointMailerFailure(t *testing.T) {
	f := newAPIFixture(t, func(f *apiFixture) {
		f.mailer = &stubMailer{err: errors.New("smtp unreachable")}
	})

	rec := postLead(t, f.server, validBody)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}

	leads, err := f.store.ListLeads(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("stored %d leads after mail failure, want 0", len(leads))
	}
}

func TestListEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	if rec := postLead(t, f.server, validBody); rec.Code != http.StatusOK {
		t.Fatalf("seed submit failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var res listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Submitted {
		t.Error("submitted = false, want true")
	}
	if len(res.Leads) != 1 || res.Leads[0].Email != "ada@example.com" {
		t.Errorf("leads = %+v, want the captured lead", res.Leads)
	}
}

func TestListEndpointNameFilter(t *testing.T) {
	f := newAPIFixture(t)
	seeds := []string{
		`{"name":"José García","email":"jose@example.com","industry":"finance"}`,
		`{"name":"Bo Chen","email":"bo@example.com","industry":"retail"}`,
	}
	for _, body := range seeds {
		if rec := postLead(t, f.server, body); rec.Code != http.StatusOK {
			t.Fatalf("seed submit failed: %d %s", rec.Code, rec.Body.String())
		}
		time.Sleep(5 * time.Millisecond) // clear the 1ms test cooldown
	}

	tests := []struct {
		name       string
		query      string
		wantEmails []string
	}{
		{"no filter", "", []string{"jose@example.com", "bo@example.com"}},
		{"plain ascii matches accented name", "Jose", []string{"jose@example.com"}},
		{"accented query matches too", "garcía", []string{"jose@example.com"}},
		{"case folded", "CHEN", []string{"bo@example.com"}},
		{"no match", "zz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/leads?q="+url.QueryEscape(tt.query), nil)
			rec := httptest.NewRecorder()
			f.server.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			var res listResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var got []string
			for _, l := range res.Leads {
				got = append(got, l.Email)
			}
			if len(got) != len(tt.wantEmails) {
				t.Fatalf("emails = %v, want %v", got, tt.wantEmails)
			}
			for i, want := range tt.wantEmails {
				if got[i] != want {
					t.Errorf("emails[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

func TestResetEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	if rec := postLead(t, f.server, validBody); rec.Code != http.StatusOK {
		t.Fatalf("seed submit failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/leads/reset", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want %d", rec.Code, http.StatusOK)
	}

	if f.session.Submitted() {
		t.Error("session still submitted after reset")
	}
	if f.session.Count() != 0 {
		t.Errorf("session count = %d after reset, want 0", f.session.Count())
	}
}

func TestExportEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	if rec := postLead(t, f.server, validBody); rec.Code != http.StatusOK {
		t.Fatalf("seed submit failed: %d", rec.Code)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantType   string
		wantInBody string
	}{
		{"default csv", "", http.StatusOK, "text/csv", "ada@example.com"},
		{"explicit csv", "?format=csv", http.StatusOK, "text/csv", "ada@example.com"},
		{"xlsx", "?format=xlsx", http.StatusOK, "spreadsheetml", ""},
		{"bad format", "?format=pdf", http.StatusBadRequest, "application/json", "invalid_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/leads/export"+tt.query, nil)
			rec := httptest.NewRecorder()
			f.server.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, tt.wantType) {
				t.Errorf("content type = %q, want substring %q", ct, tt.wantType)
			}
			if tt.wantInBody != "" && !bytes.Contains(rec.Body.Bytes(), []byte(tt.wantInBody)) {
				t.Errorf("body missing %q", tt.wantInBody)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"ok"`)) {
			t.Errorf("body = %s, want ok status", rec.Body.String())
		}
	})

	t.Run("store down", func(t *testing.T) {
		f := newAPIFixture(t, func(f *apiFixture) {
			f.store = &failingPingStore{Memory: store.NewMemory()}
		})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
