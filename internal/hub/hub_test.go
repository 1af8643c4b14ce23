// ABOUTME: Tests for the observer notification hub
// ABOUTME: Covers subscribe, publish, scope isolation, context cancellation, slow observers

package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SingleObserverReceivesNotification(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch, _ := h.Subscribe(testContext(t), "conv-1")

	h.Publish(Notification{Kind: KindHistoryUpdated, ConversationID: "conv-1"})

	select {
	case n := <-ch:
		assert.Equal(t, KindHistoryUpdated, n.Kind)
		assert.Equal(t, "conv-1", n.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestHub_MultipleObserversReceiveSameNotification(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch1, _ := h.Subscribe(testContext(t), "conv-1")
	ch2, _ := h.Subscribe(testContext(t), "conv-1")
	ch3, _ := h.Subscribe(testContext(t), "conv-1")

	h.Publish(Notification{Kind: KindInProgressChanged, ConversationID: "conv-1", Payload: true})

	for i, ch := range []<-chan Notification{ch1, ch2, ch3} {
		select {
		case n := <-ch:
			assert.Equal(t, KindInProgressChanged, n.Kind, "observer %d got wrong kind", i)
		case <-time.After(time.Second):
			t.Fatalf("observer %d timed out", i)
		}
	}
}

func TestHub_ScopesAreIsolated(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch1, _ := h.Subscribe(testContext(t), "conv-1")
	ch2, _ := h.Subscribe(testContext(t), "conv-2")

	h.Publish(Notification{Kind: KindHistoryUpdated, ConversationID: "conv-1"})

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("observer for conv-1 timed out")
	}

	select {
	case <-ch2:
		t.Fatal("observer for conv-2 should not receive conv-1 notifications")
	case <-time.After(100 * time.Millisecond):
		// Expected: no notification
	}
}

func TestHub_GlobalScopeForRegistryEvents(t *testing.T) {
	h := New(nil)
	defer h.Close()

	global, _ := h.Subscribe(testContext(t), ScopeGlobal)
	perConv, _ := h.Subscribe(testContext(t), "conv-1")

	h.Publish(Notification{Kind: KindConversationListChanged})

	select {
	case n := <-global:
		assert.Equal(t, KindConversationListChanged, n.Kind)
	case <-time.After(time.Second):
		t.Fatal("global observer timed out")
	}

	select {
	case <-perConv:
		t.Fatal("conversation observer should not receive global notifications")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ch, subID := h.Subscribe(testContext(t), "conv-1")
	require.Equal(t, 1, h.ObserverCount("conv-1"))

	h.Unsubscribe("conv-1", subID)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, h.ObserverCount("conv-1"))
}

func TestHub_ContextCancellationRemovesObserver(t *testing.T) {
	h := New(nil)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Subscribe(ctx, "conv-1")
	require.Equal(t, 1, h.ObserverCount("conv-1"))

	cancel()

	assert.Eventually(t, func() bool {
		return h.ObserverCount("conv-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_SlowObserverDoesNotBlockPublish(t *testing.T) {
	h := New(nil)
	defer h.Close()

	// Never drained: fills up after observerBufferSize notifications.
	h.Subscribe(testContext(t), "conv-1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < observerBufferSize*2; i++ {
			h.Publish(Notification{Kind: KindHistoryUpdated, ConversationID: "conv-1"})
		}
		close(done)
	}()

	select {
	case <-done:
		// Publish completed despite the full observer channel
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow observer")
	}
}

func TestHub_ConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	h := New(nil)
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, subID := h.Subscribe(testContext(t), "conv-1")
			for j := 0; j < 10; j++ {
				h.Publish(Notification{Kind: KindHistoryUpdated, ConversationID: "conv-1"})
			}
			// Drain whatever arrived, then leave
			for len(ch) > 0 {
				<-ch
			}
			h.Unsubscribe("conv-1", subID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.ObserverCount("conv-1"))
}

func TestHub_PublishRacesUnsubscribeChurn(t *testing.T) {
	h := New(nil)
	defer h.Close()

	// One goroutine publishes in a tight loop while another churns
	// subscriptions on the same scope. Unsubscribe closes the observer
	// channel, so delivery must never send to a channel it no longer holds.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.Publish(Notification{Kind: KindHistoryUpdated, ConversationID: "conv-1"})
			}
		}
	}()

	for i := 0; i < 500; i++ {
		_, subID := h.Subscribe(context.Background(), "conv-1")
		h.Unsubscribe("conv-1", subID)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 0, h.ObserverCount("conv-1"))
}

// testContext mirrors Go 1.24's t.Context for the go1.21 toolchain: a
// context canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
