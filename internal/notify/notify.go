// Package notify sends the platform's transactional emails. Email is a best
// effort side channel: callers go through Dispatcher, which logs failures
// and never returns them.
package notify

import (
	"context"
	"time"

	"awsugmdu-backend/internal/domain"

	"go.uber.org/zap"
)

// Email is a rendered message ready to send.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Kind    Kind
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// OrderEmail carries the fields of the order related emails.
type OrderEmail struct {
	To       string
	UserName string
	OrderID  string
	ItemName string
	Points   int
	Code     string
	Address  *domain.ShippingAddress
}

type SubmissionEmail struct {
	To          string
	UserName    string
	SprintTitle string
	Status      domain.SubmissionStatus
	Points      int
	Feedback    string
}

type SessionEmail struct {
	To           string
	UserName     string
	SprintTitle  string
	SessionTitle string
	Date         string
	Time         string
	MeetingLink  string
}

// Notifier is the set of emails the services send.
type Notifier interface {
	OrderCompleted(ctx context.Context, e OrderEmail) error
	CodeDelivered(ctx context.Context, e OrderEmail) error
	OrderReceived(ctx context.Context, e OrderEmail) error
	SubmissionReviewed(ctx context.Context, e SubmissionEmail) error
	SessionRegistered(ctx context.Context, e SessionEmail) error
}

// Mailer renders templates and hands the result to a Sender.
type Mailer struct {
	templates *Templates
	sender    Sender
	logger    *zap.Logger
}

var _ Notifier = (*Mailer)(nil)

func NewMailer(templates *Templates, sender Sender, logger *zap.Logger) *Mailer {
	return &Mailer{templates: templates, sender: sender, logger: logger}
}

func (m *Mailer) OrderCompleted(ctx context.Context, e OrderEmail) error {
	return m.send(ctx, KindOrderCompleted, e.To, orderData(e))
}

func (m *Mailer) CodeDelivered(ctx context.Context, e OrderEmail) error {
	return m.send(ctx, KindCodeDelivered, e.To, orderData(e))
}

func (m *Mailer) OrderReceived(ctx context.Context, e OrderEmail) error {
	return m.send(ctx, KindOrderReceived, e.To, orderData(e))
}

func (m *Mailer) SubmissionReviewed(ctx context.Context, e SubmissionEmail) error {
	return m.send(ctx, KindSubmissionReviewed, e.To, map[string]any{
		"user_name":    e.UserName,
		"sprint_title": e.SprintTitle,
		"status":       string(e.Status),
		"points":       e.Points,
		"feedback":     e.Feedback,
	})
}

func (m *Mailer) SessionRegistered(ctx context.Context, e SessionEmail) error {
	return m.send(ctx, KindSessionRegistered, e.To, map[string]any{
		"user_name":     e.UserName,
		"sprint_title":  e.SprintTitle,
		"session_title": e.SessionTitle,
		"date":          e.Date,
		"time":          e.Time,
		"meeting_link":  e.MeetingLink,
	})
}

// send skips silently when there is no recipient.
func (m *Mailer) send(ctx context.Context, kind Kind, to string, data map[string]any) error {
	if to == "" {
		m.logger.Debug("Skipping email without recipient", zap.String("kind", string(kind)))
		return nil
	}
	email, err := m.templates.Render(kind, data)
	if err != nil {
		return err
	}
	email.To = to
	email.Kind = kind
	return m.sender.Send(ctx, email)
}

func orderData(e OrderEmail) map[string]any {
	data := map[string]any{
		"user_name": e.UserName,
		"order_id":  e.OrderID,
		"item_name": e.ItemName,
		"points":    e.Points,
		"code":      e.Code,
		"address":   nil,
	}
	if a := e.Address; a != nil {
		data["address"] = map[string]any{
			"name":        a.Name,
			"city":        a.City,
			"postal_code": a.PostalCode,
			"country":     a.Country,
		}
	}
	return data
}

// LogSender writes emails to the log instead of sending them. Used when no
// SES sender address is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	s.logger.Info("Email not sent, no sender configured",
		zap.String("kind", string(email.Kind)),
		zap.String("to", redact(email.To)),
		zap.String("subject", email.Subject),
	)
	return nil
}

// Dispatcher runs best-effort side effects. Failures are logged and counted
// but never reach the caller.
type Dispatcher struct {
	logger   *zap.Logger
	timeout  time.Duration
	observer func(name string, err error)
}

// NewDispatcher creates a dispatcher. observer may be nil.
func NewDispatcher(logger *zap.Logger, observer func(name string, err error)) *Dispatcher {
	return &Dispatcher{logger: logger, timeout: 5 * time.Second, observer: observer}
}

// Dispatch runs fn synchronously with its own deadline, detached from the
// request's cancellation so a finished response does not abort the send.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := fn(ctx)
	if d.observer != nil {
		d.observer(name, err)
	}
	if err != nil {
		d.logger.Warn("Best-effort side effect failed", zap.String("name", name), zap.Error(err))
	}
}

func redact(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i <= 1 {
				return "*" + email[i:]
			}
			return email[:1] + "***" + email[i:]
		}
	}
	return "***"
}
