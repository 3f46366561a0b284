package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()

	sub := &Subscriber{ID: "s1", Activity: make(chan DeliveryActivity, 10)}
	h.Subscribe(sub)
	defer h.Unsubscribe("s1")

	h.Publish(DeliveryActivity{EventID: "ev-1", Status: ActivityDelivered})

	select {
	case got := <-sub.Activity:
		if got.EventID != "ev-1" || got.Status != ActivityDelivered {
			t.Errorf("unexpected activity: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected activity delivery")
	}
}

func TestHubDownstreamFilter(t *testing.T) {
	h := NewHub()

	sub := &Subscriber{ID: "s1", Downstream: "ads-api", Activity: make(chan DeliveryActivity, 10)}
	h.Subscribe(sub)
	defer h.Unsubscribe("s1")

	h.Publish(DeliveryActivity{EventID: "ev-1", Downstream: "analytics-api"})
	h.Publish(DeliveryActivity{EventID: "ev-2", Downstream: "ads-api"})

	got := <-sub.Activity
	if got.EventID != "ev-2" {
		t.Errorf("expected only the ads activity, got %+v", got)
	}
	if len(sub.Activity) != 0 {
		t.Error("filtered activity leaked through")
	}
}

func TestHubKindFilter(t *testing.T) {
	h := NewHub()

	sub := &Subscriber{ID: "s1", Kind: "purchase_approved", Activity: make(chan DeliveryActivity, 10)}
	h.Subscribe(sub)
	defer h.Unsubscribe("s1")

	h.Publish(DeliveryActivity{EventID: "ev-1", Kind: "page_view"})
	h.Publish(DeliveryActivity{EventID: "ev-2", Kind: "purchase_approved"})

	got := <-sub.Activity
	if got.EventID != "ev-2" {
		t.Errorf("expected only the purchase activity, got %+v", got)
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()

	sub := &Subscriber{ID: "slow", Activity: make(chan DeliveryActivity, 1)}
	h.Subscribe(sub)
	defer h.Unsubscribe("slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(DeliveryActivity{EventID: "ev"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish must never block on a full subscriber")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()

	sub := &Subscriber{ID: "s1", Activity: make(chan DeliveryActivity, 1)}
	h.Subscribe(sub)
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.SubscriberCount())
	}

	h.Unsubscribe("s1")
	if h.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.SubscriberCount())
	}
	if _, ok := <-sub.Activity; ok {
		t.Error("expected channel closed on unsubscribe")
	}

	// Unsubscribing twice is a no-op, not a double close.
	h.Unsubscribe("s1")
}
