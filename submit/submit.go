// submit/submit.go
// Package submit drives one end-to-end lead submission: validate the input,
// pass the admission guard, send the confirmation email, persist the lead,
// and update session state. All remote-call failures are handled here; none
// propagate to the caller as Go errors. The guard is always released, on
// every path including panics.
package submit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/leadcapture/events"
	"github.com/dalemusser/leadcapture/guard"
	"github.com/dalemusser/leadcapture/lead"
	"github.com/dalemusser/leadcapture/metrics"
	"github.com/dalemusser/leadcapture/notify"
	"github.com/dalemusser/leadcapture/session"
	"github.com/dalemusser/leadcapture/store"
	"github.com/dalemusser/leadcapture/validate"
)

// Status is the outcome of one submission attempt.
type Status string

const (
	// StatusAccepted: the lead was captured (including the tolerated
	// duplicate-email persistence conflict).
	StatusAccepted Status = "accepted"

	// StatusInvalid: field validation failed; nothing was sent or stored.
	StatusInvalid Status = "invalid"

	// StatusDuplicate: the guard rejected the attempt (in flight, replayed
	// id, or cooldown). Silent by design; the attempt that is already
	// running carries the user's intent.
	StatusDuplicate Status = "duplicate"

	// StatusFailed: a remote call failed; the user was notified and may
	// retry after the cooldown.
	StatusFailed Status = "failed"
)

// Result reports what happened to a submission attempt.
type Result struct {
	Status      Status              `json:"status"`
	RequestID   string              `json:"request_id,omitempty"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
	Lead        *lead.Lead          `json:"lead,omitempty"`
}

// CountryResolver maps a client IP to an ISO country code; "" means unknown.
// *geo.DB satisfies this, including as a typed nil.
type CountryResolver interface {
	CountryCode(ip string) string
}

// Submitter orchestrates submissions. All collaborators are injected;
// construct one per service instance.
type Submitter struct {
	guard     *guard.Guard
	store     store.LeadStore
	mailer    Mailer
	session   *session.Session
	notifier  notify.Notifier
	publisher events.Publisher
	geo       CountryResolver
	logger    *zap.Logger
	now       func() time.Time
}

// Mailer is the email-send collaborator (mirrors mailer.Sender; declared
// here so the workflow depends on behavior, not the SMTP package).
type Mailer interface {
	SendConfirmation(ctx context.Context, in lead.FormInput, requestID string) error
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithPublisher sets the lead-created event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Submitter) { s.publisher = p }
}

// WithCountryResolver sets the optional geo enrichment source.
func WithCountryResolver(r CountryResolver) Option {
	return func(s *Submitter) { s.geo = r }
}

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// New creates a Submitter.
func New(g *guard.Guard, st store.LeadStore, m Mailer, sess *session.Session, n notify.Notifier, logger *zap.Logger, opts ...Option) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if n == nil {
		n = notify.Nop{}
	}
	s := &Submitter{
		guard:     g,
		store:     st,
		mailer:    m,
		session:   sess,
		notifier:  n,
		publisher: events.Nop{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one submission attempt. clientIP is used only for optional
// country enrichment and may be empty.
func (s *Submitter) Submit(ctx context.Context, in lead.FormInput, clientIP string) Result {
	// Step 1: validate. Invalid input never reaches the guard or any
	// remote call; the errors go back to the form, not the notifier.
	if errs := validate.Struct(in); errs != nil {
		metrics.SubmissionsTotal.WithLabelValues(string(StatusInvalid)).Inc()
		return Result{Status: StatusInvalid, FieldErrors: errs.ToMap()}
	}

	// Step 2: fresh identifier for this attempt.
	requestID := guard.NewRequestID()

	// Step 3: admission. Rejection is a safety net behind the UI's
	// disabled/loading state, so it stays silent toward the user.
	if !s.guard.TryAcquire(requestID) {
		s.logger.Debug("submission rejected by guard", zap.String("request_id", requestID))
		metrics.SubmissionsTotal.WithLabelValues(string(StatusDuplicate)).Inc()
		return Result{Status: StatusDuplicate, RequestID: requestID}
	}

	return s.run(ctx, in, requestID, clientIP)
}

// run executes the guarded portion of the workflow. Split out so the
// deferred release/recover covers exactly the span where the guard is held.
func (s *Submitter) run(ctx context.Context, in lead.FormInput, requestID, clientIP string) (res Result) {
	defer func() {
		// The guard is released no matter how we leave, so a failed attempt
		// never locks out subsequent ones.
		s.guard.Release(requestID)

		if r := recover(); r != nil {
			s.logger.Error("panic during submission",
				zap.Any("panic_value", r),
				zap.String("request_id", requestID),
			)
			s.notifier.Notify(notify.Notification{
				Title:       "Something went wrong",
				Description: "An unexpected error occurred. Please try again.",
				Kind:        notify.KindError,
			})
			metrics.SubmissionsTotal.WithLabelValues(string(StatusFailed)).Inc()
			res = Result{Status: StatusFailed, RequestID: requestID}
		}
	}()

	in = in.Normalize()

	// Step 5: confirmation email. Failure aborts before persistence.
	if err := s.mailer.SendConfirmation(ctx, in, requestID); err != nil {
		s.logger.Warn("confirmation email failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		s.notifier.Notify(notify.Notification{
			Title:       "Could not send confirmation",
			Description: "We couldn't send your confirmation email. Please try again.",
			Kind:        notify.KindError,
		})
		metrics.SubmissionsTotal.WithLabelValues(string(StatusFailed)).Inc()
		return Result{Status: StatusFailed, RequestID: requestID}
	}

	l := lead.NewLead(requestID, in, s.now())
	if s.geo != nil {
		l.Country = s.geo.CountryCode(clientIP)
	}

	// Step 6: persist. A duplicate email is an accepted business condition,
	// not a failure: the confirmation already went out, so the flow
	// continues as success.
	if err := s.store.SaveLead(ctx, l); err != nil {
		if store.IsDuplicate(err) {
			s.logger.Info("lead already exists, continuing as success",
				zap.String("request_id", requestID),
				zap.String("email", l.Email),
			)
			metrics.DuplicateConflictsTotal.Inc()
		} else {
			s.logger.Error("lead persistence failed",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			s.notifier.Notify(notify.Notification{
				Title:       "Submission failed",
				Description: "We couldn't save your details. Please try again.",
				Kind:        notify.KindError,
			})
			metrics.SubmissionsTotal.WithLabelValues(string(StatusFailed)).Inc()
			return Result{Status: StatusFailed, RequestID: requestID}
		}
	}

	// Step 7: success. Session state, event, notification.
	s.session.AddLead(l)
	s.session.SetSubmitted(true)

	if err := s.publisher.PublishLeadCreated(ctx, events.FromLead(l)); err != nil {
		// Best-effort: the lead is captured either way.
		s.logger.Warn("lead created event publish failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	s.notifier.Notify(notify.Notification{
		Title:       "You're on the list",
		Description: "Check your inbox for a confirmation email.",
		Kind:        notify.KindSuccess,
	})
	metrics.SubmissionsTotal.WithLabelValues(string(StatusAccepted)).Inc()

	return Result{Status: StatusAccepted, RequestID: requestID, Lead: &l}
}

// Reset clears the guard and session state for a "submit another" action.
func (s *Submitter) Reset() {
	s.guard.Reset()
	s.session.Reset()
}
