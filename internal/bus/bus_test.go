package bus

import (
	"testing"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()

	var got []Event
	b.Subscribe(TopicSessionChanged, func(evt Event) {
		got = append(got, evt)
	})

	b.Publish(Event{Topic: TopicSessionChanged, Reason: "granted"})
	b.Publish(Event{Topic: TopicSessionChanged, Reason: "revoked"})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Reason != "granted" || got[1].Reason != "revoked" {
		t.Errorf("unexpected reasons: %q, %q", got[0].Reason, got[1].Reason)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	calls := 0
	unsub := b.Subscribe(TopicSessionChanged, func(Event) { calls++ })

	b.Publish(Event{Topic: TopicSessionChanged})
	unsub()
	b.Publish(Event{Topic: TopicSessionChanged})

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}

	// A second unsubscribe must be harmless.
	unsub()
}

func TestTopicIsolation(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe(Topic("other"), func(Event) { calls++ })

	b.Publish(Event{Topic: TopicSessionChanged})

	if calls != 0 {
		t.Errorf("subscriber of another topic was invoked %d times", calls)
	}
}
