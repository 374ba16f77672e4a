package publishers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

type capturePublisher struct {
	stubPublisher
	events []Event
}

func (c *capturePublisher) Publish(ctx context.Context, evt Event) error {
	c.events = append(c.events, evt)
	return c.stubPublisher.Publish(ctx, evt)
}

func TestNotifierPublishesMutationEvent(t *testing.T) {
	pub := &capturePublisher{stubPublisher: stubPublisher{id: "cap", typ: "http"}}
	n := NewNotifier("desk-7", NewFanout([]Publisher{pub}), nil)

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("x", 3600))
	err := n.NotifyMutation(context.Background(), apiclient.Mutation{
		Method:       "DELETE",
		Endpoint:     "/reservations/r9",
		ResourcePath: "/reservations",
		Invalidated:  3,
		RequestKey:   "rk",
		OccurredAt:   at,
	})
	if err != nil {
		t.Fatalf("NotifyMutation: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.ClientID != "desk-7" || evt.Invalidated != 3 || evt.ResourcePath != "/reservations" {
		t.Fatalf("unexpected event %#v", evt)
	}
	if evt.OccurredAt.Location() != time.UTC || !evt.OccurredAt.Equal(at) {
		t.Fatalf("OccurredAt should be normalized to UTC, got %v", evt.OccurredAt)
	}
}

func TestNotifierReturnsPublisherErrors(t *testing.T) {
	n := NewNotifier("desk", NewFanout([]Publisher{
		&stubPublisher{id: "bad", typ: "sqs", err: errors.New("throttled")},
	}), nil)

	if err := n.NotifyMutation(context.Background(), apiclient.Mutation{Method: "POST"}); err == nil {
		t.Fatalf("expected error from failing publisher")
	}
}

func TestNotifierWithoutPublishersIsNoop(t *testing.T) {
	n := NewNotifier("desk", NewFanout(nil), nil)
	if err := n.NotifyMutation(context.Background(), apiclient.Mutation{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
