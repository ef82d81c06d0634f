package notify

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// SESAPI is the part of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends through Amazon SES v2 behind a circuit breaker, so a
// failing SES endpoint stops costing request latency after a few attempts.
type SESSender struct {
	client           SESAPI
	from             string
	configurationSet string
	breaker          *gobreaker.CircuitBreaker
	logger           *zap.Logger
}

func NewSESSender(client SESAPI, from, configurationSet string, logger *zap.Logger) *SESSender {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ses",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &SESSender{
		client:           client,
		from:             from,
		configurationSet: configurationSet,
		breaker:          breaker,
		logger:           logger,
	}
}

func (s *SESSender) Send(ctx context.Context, email Email) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{email.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(email.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String(string(email.Kind))},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.SendEmail(ctx, input)
	})
	if err != nil {
		return err
	}

	out, _ := result.(*sesv2.SendEmailOutput)
	messageID := ""
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	s.logger.Info("Email sent",
		zap.String("kind", string(email.Kind)),
		zap.String("to", redact(email.To)),
		zap.String("messageId", messageID),
	)
	return nil
}
