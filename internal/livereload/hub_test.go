package livereload

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/observability"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), observability.NewMetrics())
}

func TestHubPublishReachesAllRegistered(t *testing.T) {
	h := newTestHub()

	subs := make([]*Subscription, 3)
	for i := range subs {
		subs[i] = h.Subscribe()
	}

	h.Publish(SignalFull)

	for i, sub := range subs {
		select {
		case sig := <-sub.Signals():
			if sig != SignalFull {
				t.Errorf("subscriber %d got %v, want %v", i, sig, SignalFull)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the signal", i)
		}
	}
}

func TestHubNoRetroactiveDelivery(t *testing.T) {
	h := newTestHub()

	h.Publish(SignalFull)

	late := h.Subscribe()
	defer late.Close()

	select {
	case sig := <-late.Signals():
		t.Fatalf("late subscriber received %v published before registration", sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishWithZeroClients(t *testing.T) {
	h := newTestHub()

	done := make(chan struct{})
	go func() {
		h.Publish(SignalFull)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish with zero clients blocked")
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestHubSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	h := newTestHub()

	slow := h.Subscribe()
	defer slow.Close()
	healthy := h.Subscribe()
	defer healthy.Close()

	// Fill the slow subscriber's buffer; nobody drains it.
	for i := 0; i < subscriptionBuffer+4; i++ {
		h.Publish(SignalStyleOnly)
	}

	// Drain healthy to make room, then publish once more: the full slow
	// queue must not delay or fail delivery to healthy.
	for len(healthy.Signals()) > 0 {
		<-healthy.Signals()
	}
	done := make(chan Signal, 1)
	go func() {
		h.Publish(SignalFull)
		done <- <-healthy.Signals()
	}()

	select {
	case sig := <-done:
		if sig != SignalFull {
			t.Errorf("healthy subscriber got %v, want %v", sig, SignalFull)
		}
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHubCloseDuringPublish(t *testing.T) {
	h := newTestHub()

	var subs []*Subscription
	for i := 0; i < 32; i++ {
		subs = append(subs, h.Subscribe())
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			h.Publish(SignalFull)
		}
	}()
	go func() {
		defer wg.Done()
		for _, sub := range subs {
			sub.Close()
		}
	}()
	wg.Wait()

	if h.Len() != 0 {
		t.Errorf("Len = %d after closing all subscriptions, want 0", h.Len())
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()

	sub.Close()
	sub.Close() // must not panic or double-close the channel

	if _, ok := <-sub.Signals(); ok {
		t.Error("expected closed signal channel")
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestHubDeliveryOrderPerSubscription(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()
	defer sub.Close()

	h.Publish(SignalFull)
	h.Publish(SignalStyleOnly)
	h.Publish(SignalFull)

	want := []Signal{SignalFull, SignalStyleOnly, SignalFull}
	for i, w := range want {
		select {
		case got := <-sub.Signals():
			if got != w {
				t.Errorf("signal %d = %v, want %v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for signal %d", i)
		}
	}
}
