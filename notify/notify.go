// notify/notify.go
// Package notify delivers fire-and-forget user-facing notifications produced
// by the submission workflow. Nothing consumes a return value; delivery
// failures are the notifier's problem, not the workflow's.
package notify

import "go.uber.org/zap"

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one user-facing message.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

// Notifier delivers notifications. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	switch n.Kind {
	case KindError:
		l.logger.Warn("notification", fields...)
	default:
		l.logger.Info("notification", fields...)
	}
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(Notification) {}
