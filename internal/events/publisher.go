package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher emits domain events. A nil Publisher drops events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type pubsubPublisher struct {
	topic topicPublisher
	logg  *logger.Logger
	now   func() time.Time
}

// NewPubSubPublisher wraps a Pub/Sub topic publisher. A nil topic yields a
// publisher that only logs.
func NewPubSubPublisher(topic *gcppubsub.Publisher, logg *logger.Logger) Publisher {
	if topic == nil {
		return NoopPublisher{logg: logg}
	}
	return &pubsubPublisher{topic: &gcpPublisher{Publisher: topic}, logg: logg, now: time.Now}
}

func (p *pubsubPublisher) Publish(ctx context.Context, evt Event) error {
	env, err := newEnvelope(evt, p.now())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", evt.Type, err)
	}

	msg := &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":     env.EventID,
			"event_type":   env.EventType,
			"aggregate_id": env.AggregateID,
			"occurred_at":  env.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publish result is nil")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{"event_type": env.EventType, "aggregate_id": env.AggregateID})
		p.logg.Debug(ctx, "event published")
	}
	return nil
}

// NoopPublisher drops every event.
type NoopPublisher struct {
	logg *logger.Logger
}

func (n NoopPublisher) Publish(ctx context.Context, evt Event) error {
	if n.logg != nil {
		n.logg.Debug(n.logg.WithField(ctx, "event_type", evt.Type), "events topic not configured; event dropped")
	}
	return nil
}

// PublishAll publishes every event and logs failures. Events are
// notifications, so a failed publish never fails the caller.
func PublishAll(ctx context.Context, pub Publisher, logg *logger.Logger, evts ...Event) {
	if pub == nil {
		return
	}
	for _, evt := range evts {
		if err := pub.Publish(ctx, evt); err != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "event_type", evt.Type), "publish event failed", err)
		}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
