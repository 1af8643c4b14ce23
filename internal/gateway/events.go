// ABOUTME: Server-sent events endpoint streaming hub notifications to observers
// ABOUTME: Clients subscribe per conversation or globally and receive JSON payloads named by notification kind

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2389/coven-assist/internal/hub"
)

// handleEvents streams hub notifications over SSE. The conversation_id query
// parameter scopes the stream; without it the client observes global events.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	scope := r.URL.Query().Get("conversation_id")
	ch, subID := g.hub.Subscribe(r.Context(), scope)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	g.logger.Debug("observer connected", "scope", scope, "subscription_id", subID)
	defer g.logger.Debug("observer disconnected", "subscription_id", subID)

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, n); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, n hub.Notification) error {
	payload := map[string]any{
		"conversation_id": n.ConversationID,
	}
	if n.Payload != nil {
		payload["data"] = n.Payload
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", n.Kind.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
