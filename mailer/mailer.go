// mailer/mailer.go
// Package mailer sends the lead confirmation email. The SMTP implementation
// wraps github.com/wneessen/go-mail; a log-only implementation stands in when
// no SMTP host is configured (development).
package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/dalemusser/leadcapture/lead"
)

// Sender is the email-send collaborator of the submission workflow. The
// request id accompanies the message so a resent confirmation can be traced
// back to its submission attempt.
type Sender interface {
	SendConfirmation(ctx context.Context, in lead.FormInput, requestID string) error
}

// LogSender logs the confirmation instead of sending it. Used in development
// and as a safe default when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendConfirmation(_ context.Context, in lead.FormInput, requestID string) error {
	s.logger.Info("confirmation email (log only)",
		zap.String("to", in.Email),
		zap.String("name", in.Name),
		zap.String("industry", string(in.Industry)),
		zap.String("request_id", requestID),
	)
	return nil
}
