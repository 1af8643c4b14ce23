// ABOUTME: HTTP server exposing the registry and session contracts to external callers
// ABOUTME: Request/response calls return post-call snapshots; push events flow over SSE

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/coven-assist/internal/content"
	"github.com/2389/coven-assist/internal/dedupe"
	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/registry"
	"github.com/2389/coven-assist/internal/session"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	idempotencyWindow   = 5 * time.Minute
	idempotencyCapacity = 4096
)

// Gateway serves the assistant API over HTTP.
type Gateway struct {
	registry  *registry.Registry
	hub       *hub.Hub
	pages     *content.PageCache
	submitted *dedupe.Cache
	logger    *slog.Logger
	server    *http.Server
}

// New creates a gateway for the given registry, hub, and page cache.
func New(reg *registry.Registry, h *hub.Hub, pages *content.PageCache, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		registry:  reg,
		hub:       h,
		pages:     pages,
		submitted: dedupe.New(idempotencyWindow, idempotencyCapacity),
		logger:    logger.With("component", "gateway"),
	}
}

// duplicateSubmission reports whether the request carries an idempotency key
// already seen within the dedupe window. Keys are scoped per conversation.
func (g *Gateway) duplicateSubmission(r *http.Request, conversationID string) bool {
	key := r.Header.Get(idempotencyHeader)
	if key == "" {
		return false
	}
	return g.submitted.Seen(conversationID + "/" + key)
}

// Routes returns the HTTP handler with all API routes registered.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/agreement/accept", g.handleAcceptAgreement)
	mux.HandleFunc("/api/actions", g.handleActionMenu)
	mux.HandleFunc("/api/premium", g.handlePremiumStatus)
	mux.HandleFunc("/api/premium/dismiss-prompt", g.handleDismissPremiumPrompt)
	mux.HandleFunc("/api/conversations", g.handleConversations)
	mux.HandleFunc("/api/conversations/", g.handleConversationRoutes)
	mux.HandleFunc("/api/default-conversation", g.handleDefaultConversation)
	mux.HandleFunc("/api/page", g.handlePageText)
	mux.HandleFunc("/api/events", g.handleEvents)

	return mux
}

// Start begins serving on the given address. Blocks until the context is
// cancelled, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context, addr string) error {
	defer g.submitted.Close()

	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", addr)
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return g.server.Shutdown(shutdownCtx)
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConversationRoutes dispatches /api/conversations/{id}[/{op}] to the
// session handlers.
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation id required")
		return
	}
	conversationID := parts[0]
	op := ""
	if len(parts) == 2 {
		op = parts[1]
	}

	if op == "" {
		switch r.Method {
		case http.MethodGet:
			g.handleGetSession(w, r, conversationID)
		case http.MethodDelete:
			g.handleDeleteConversation(w, r, conversationID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	s, err := g.registry.Bind(r.Context(), conversationID)
	if err != nil {
		g.logger.Error("failed to bind conversation", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch op {
	case "history":
		g.handleHistory(w, r, s)
	case "entries":
		g.handleSubmitEntry(w, r, s)
	case "summarize":
		g.handleSummarize(w, r, s)
	case "edits":
		g.handleModify(w, r, s)
	case "model":
		g.handleChangeModel(w, r, s)
	case "models":
		g.handleModels(w, r, s)
	case "page-contents":
		g.handlePageContents(w, r, s)
	case "retry":
		g.handleRetry(w, r, s)
	case "clear-error":
		g.handleClearError(w, r, s)
	case "rating":
		g.handleRating(w, r, s)
	case "feedback":
		g.handleFeedback(w, r, s)
	case "content":
		g.handleContent(w, r, s)
	case "questions":
		g.handleQuestions(w, r, s)
	default:
		g.sendJSONError(w, http.StatusNotFound, "unknown operation")
	}
}

// bindForRequest resolves a session for handlers outside the sub-path
// dispatcher.
func (g *Gateway) bindForRequest(w http.ResponseWriter, r *http.Request, conversationID string) (*session.Session, bool) {
	s, err := g.registry.Bind(r.Context(), conversationID)
	if err != nil {
		g.logger.Error("failed to bind conversation", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return s, true
}
