package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{project: "proj", name: "events", want: "projects/proj/topics/events"},
		{project: "proj", name: " projects/other/topics/events ", want: "projects/other/topics/events"},
		{project: "", name: "events", want: ""},
		{project: "proj", name: "  ", want: ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{EventsTopic: "events"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "proj"}, config.PubSubConfig{}, nil); err != errNoEventsTopic {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.EventsPublisher() != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestApplyPublishSettings(t *testing.T) {
	settings := pubsub.DefaultPublishSettings
	applyPublishSettings(&settings, config.PubSubConfig{BatchDelay: 50 * time.Millisecond, BatchCount: 10, PublishTimeout: time.Second})
	if settings.DelayThreshold != 50*time.Millisecond || settings.CountThreshold != 10 || settings.Timeout != time.Second {
		t.Fatalf("settings not applied: %+v", settings)
	}

	untouched := pubsub.DefaultPublishSettings
	applyPublishSettings(&untouched, config.PubSubConfig{})
	if untouched.DelayThreshold != pubsub.DefaultPublishSettings.DelayThreshold || untouched.CountThreshold != pubsub.DefaultPublishSettings.CountThreshold {
		t.Fatalf("zero config should keep defaults: %+v", untouched)
	}
}
