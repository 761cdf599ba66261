package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type fakeTopic struct {
	messages []*gcppubsub.Message
	err      error
}

func (f *fakeTopic) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.err}
}

func TestPubSubPublisherWritesEnvelope(t *testing.T) {
	topic := &fakeTopic{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := &pubsubPublisher{topic: topic, now: func() time.Time { return now }}

	err := pub.Publish(context.Background(), Event{
		Type:        TypeReviewStatusUpdated,
		AggregateID: "rev_1",
		Data:        map[string]string{"status": "approved"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(topic.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(topic.messages))
	}

	msg := topic.messages[0]
	if msg.Attributes["event_type"] != TypeReviewStatusUpdated || msg.Attributes["aggregate_id"] != "rev_1" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventID == "" || !env.OccurredAt.Equal(now) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Data) != `{"status":"approved"}` {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestPubSubPublisherReturnsPublishError(t *testing.T) {
	topic := &fakeTopic{err: errors.New("topic gone")}
	pub := &pubsubPublisher{topic: topic, now: time.Now}

	if err := pub.Publish(context.Background(), Event{Type: TypeUploadCreated}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewPubSubPublisherWithoutTopicIsNoop(t *testing.T) {
	pub := NewPubSubPublisher(nil, nil)
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
	if err := pub.Publish(context.Background(), Event{Type: TypeUploadCreated}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}

type countingPublisher struct {
	calls int
}

func (c *countingPublisher) Publish(context.Context, Event) error {
	c.calls++
	return errors.New("boom")
}

func TestPublishAllContinuesAfterFailure(t *testing.T) {
	pub := &countingPublisher{}
	PublishAll(context.Background(), pub, nil, Event{Type: "a"}, Event{Type: "b"})
	if pub.calls != 2 {
		t.Fatalf("expected two publish attempts, got %d", pub.calls)
	}
	PublishAll(context.Background(), nil, nil, Event{Type: "a"})
}
