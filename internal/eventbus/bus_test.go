package eventbus

import (
	"testing"
	"time"
)

func TestSubscribePublishOrder(t *testing.T) {
	b := New(false)
	_, ch := b.Subscribe()

	b.Publish(Connecting())
	b.Publish(Connected())
	b.Publish(Bell())

	want := []Kind{KindConnecting, KindConnected, KindBell}
	for i, k := range want {
		select {
		case ev := <-ch:
			if ev.Kind != k {
				t.Fatalf("event %d: got %s, want %s", i, ev.Kind, k)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d: timed out waiting for delivery", i)
		}
	}
}

func TestMultipleSubscribersEachGetEveryEvent(t *testing.T) {
	b := New(false)
	_, chA := b.Subscribe()
	_, chB := b.Subscribe()

	b.Publish(Bell())

	for name, ch := range map[string]<-chan Event{"A": chA, "B": chB} {
		select {
		case ev := <-ch:
			if ev.Kind != KindBell {
				t.Fatalf("subscriber %s: got %s, want Bell", name, ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s: timed out", name)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(false)
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after Unsubscribe")
	}
}

func TestUnsubscribeUnknownIDIsNoop(t *testing.T) {
	b := New(false)
	b.Unsubscribe(999)
}

func TestPublishAfterUnsubscribeDoesNotPanic(t *testing.T) {
	b := New(false)
	id, _ := b.Subscribe()
	b.Unsubscribe(id)
	b.Publish(Bell())
}

func TestOverflowDropsOldestRatherThanBlocking(t *testing.T) {
	b := New(false)
	_, ch := b.Subscribe()

	// Publish well past the internal buffer without ever draining; this
	// must not block the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*4; i++ {
			b.Publish(Resize(uint16(i), 0))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Publish blocked on a slow subscriber")
	}

	// Drain whatever made it through; the channel must still be readable,
	// must not have grown beyond its capacity, and must hold the newest
	// events (the oldest ones were the ones dropped).
	drained := 0
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed unexpectedly")
			}
			if drained == 0 && ev.Width != uint16(defaultBuffer*3) {
				t.Fatalf("first surviving event is #%d, want #%d", ev.Width, defaultBuffer*3)
			}
			drained++
		default:
			if drained == 0 {
				t.Fatalf("expected at least one surviving event")
			}
			if drained > defaultBuffer {
				t.Fatalf("drained %d events, exceeds buffer capacity %d", drained, defaultBuffer)
			}
			return
		}
	}
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	b := New(false)
	_, chA := b.Subscribe()
	_, chB := b.Subscribe()
	b.Close()

	if _, ok := <-chA; ok {
		t.Fatalf("expected chA closed")
	}
	if _, ok := <-chB; ok {
		t.Fatalf("expected chB closed")
	}
}
