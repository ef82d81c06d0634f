// Package events publishes domain events for downstream consumers such as
// analytics and leaderboard jobs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// Source is the EventBridge source of every event this service emits.
const Source = "awsugmdu.community"

const (
	TypeOrderCreated        = "OrderCreated"
	TypeOrderStatusChanged  = "OrderStatusChanged"
	TypeSubmissionReviewed  = "SubmissionReviewed"
	TypeSprintStatusChanged = "SprintStatusChanged"
)

// Event is one domain event. Detail is serialized as JSON.
type Event struct {
	Type        string
	AggregateID string
	Detail      any
	Time        time.Time
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// API is the part of the EventBridge client the publisher uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher sends events to an EventBridge bus.
type EventBridgePublisher struct {
	client       API
	eventBusName string
	logger       *zap.Logger
}

func NewEventBridgePublisher(client API, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{client: client, eventBusName: eventBusName, logger: logger}
}

// Publish sends events in PutEvents batches of at most 10.
func (p *EventBridgePublisher) Publish(ctx context.Context, events ...Event) error {
	const batchSize = 10

	for i := 0; i < len(events); i += batchSize {
		end := min(i+batchSize, len(events))
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, batch []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
		}
		ts := event.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(ts),
			Resources:    []string{fmt.Sprintf("%s:%s", Source, event.AggregateID)},
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(batch) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", batch[i].Type),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

// NopPublisher drops events. Used when no event bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, events ...Event) error { return nil }
