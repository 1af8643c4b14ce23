// ABOUTME: In-memory fan-out hub delivering session and registry notifications to observers
// ABOUTME: Publishes to per-observer buffered channels so a slow observer never stalls a producer

package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// observerBufferSize is the channel buffer for each observer.
	observerBufferSize = 64

	// ScopeGlobal receives registry-level notifications not tied to a
	// single conversation (list changes, agreement, default conversation).
	ScopeGlobal = ""
)

// Kind identifies what changed.
type Kind int

const (
	KindConversationListChanged Kind = iota
	KindAgreementAccepted
	KindDefaultConversationChanged
	KindHistoryUpdated
	KindInProgressChanged
	KindResponseErrorChanged
	KindModelDataChanged
	KindSuggestedQuestionsChanged
	KindAssociatedContentChanged
	KindFaviconChanged
)

// String returns the event name pushed over the wire.
func (k Kind) String() string {
	switch k {
	case KindConversationListChanged:
		return "conversation_list_changed"
	case KindAgreementAccepted:
		return "agreement_accepted"
	case KindDefaultConversationChanged:
		return "default_conversation_changed"
	case KindHistoryUpdated:
		return "history_updated"
	case KindInProgressChanged:
		return "request_in_progress_changed"
	case KindResponseErrorChanged:
		return "response_error_changed"
	case KindModelDataChanged:
		return "model_data_changed"
	case KindSuggestedQuestionsChanged:
		return "suggested_questions_changed"
	case KindAssociatedContentChanged:
		return "associated_content_changed"
	case KindFaviconChanged:
		return "favicon_changed"
	default:
		return "unknown"
	}
}

// Notification is one observer push event. Payload content depends on Kind
// and is already shaped for delivery (the hub does not interpret it).
type Notification struct {
	Kind           Kind
	ConversationID string
	Payload        any
}

// Hub provides in-memory pub/sub for observer notifications. Observers
// subscribe to a conversation ID, or to ScopeGlobal for registry events, and
// receive notifications as they are published.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]map[string]chan Notification // scope -> subID -> ch
	logger    *slog.Logger
}

// New creates a hub. Pass nil logger for default.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		observers: make(map[string]map[string]chan Notification),
		logger:    logger.With("component", "hub"),
	}
}

// Subscribe registers an observer for notifications on the given scope
// (a conversation ID, or ScopeGlobal). Returns the delivery channel and a
// subscription ID for later removal. The subscription is cleaned up
// automatically when ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, scope string) (<-chan Notification, string) {
	subID := uuid.New().String()
	ch := make(chan Notification, observerBufferSize)

	h.mu.Lock()
	if _, ok := h.observers[scope]; !ok {
		h.observers[scope] = make(map[string]chan Notification)
	}
	h.observers[scope][subID] = ch
	h.mu.Unlock()

	h.logger.Debug("observer added", "scope", scope, "sub_id", subID)

	go func() {
		<-ctx.Done()
		h.Unsubscribe(scope, subID)
	}()

	return ch, subID
}

// Publish delivers a notification to every observer of its scope.
// Non-blocking: the notification is dropped for observers whose channels are
// full, never queued against the producer. The read lock is held across the
// sends so an unsubscribe cannot close a channel mid-send; the sends never
// block, so holding it is cheap.
func (h *Hub) Publish(n Notification) {
	scope := n.ConversationID

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.observers[scope] {
		select {
		case ch <- n:
		default:
			h.logger.Debug("dropped notification for slow observer",
				"scope", scope,
				"kind", n.Kind.String())
		}
	}
}

// Unsubscribe removes an observer and closes its channel.
func (h *Hub) Unsubscribe(scope, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.observers[scope]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(h.observers, scope)
	}

	h.logger.Debug("observer removed", "scope", scope, "sub_id", subID)
}

// ObserverCount returns the number of observers on a scope.
func (h *Hub) ObserverCount(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers[scope])
}

// Close shuts down the hub and closes all observer channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for scope, subs := range h.observers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(h.observers, scope)
	}

	h.logger.Debug("hub closed")
}
