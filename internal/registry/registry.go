// ABOUTME: Top-level directory of conversations: metadata, session binding, premium cache
// ABOUTME: Binding is idempotent; at most one live session exists per conversation identifier

package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-assist/internal/engine"
	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/model"
	"github.com/2389/coven-assist/internal/session"
	"github.com/2389/coven-assist/internal/store"
	"github.com/2389/coven-assist/internal/suggest"
)

// ErrConversationNotFound is returned when a conversation ID is unknown.
var ErrConversationNotFound = errors.New("conversation not found")

const defaultPremiumRefreshInterval = 5 * time.Minute

// ConversationStore defines what the registry needs from storage.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *store.Conversation) error
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	ListConversations(ctx context.Context) ([]*store.Conversation, error)
	UpdateConversation(ctx context.Context, c *store.Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	SaveTurn(ctx context.Context, t *store.TurnRecord) error
	GetTurns(ctx context.Context, conversationID string) ([]*store.TurnRecord, error)
}

// PremiumChecker reports the caller's entitlement. Implementations are
// network-bound; the registry caches results and refreshes on a throttle.
type PremiumChecker interface {
	CheckPremiumStatus(ctx context.Context) (model.PremiumState, *PremiumInfo, error)
}

// PremiumInfo describes a premium subscription.
type PremiumInfo struct {
	RemainingCredentials int
	// NextRenewal is nil when no further renewal is scheduled.
	NextRenewal *time.Time
}

// Meta is the list-level view of a conversation.
type Meta struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	HasContent bool   `json:"has_content"`
}

// ActionEntry is one item in a quick-action group: either a section
// subheading or a labeled action tag.
type ActionEntry struct {
	Label      string `json:"label"`
	Subheading bool   `json:"subheading,omitempty"`
	ActionTag  string `json:"action_tag,omitempty"`
}

// ActionGroup is a category of quick actions.
type ActionGroup struct {
	Category string        `json:"category"`
	Entries  []ActionEntry `json:"entries"`
}

// Options configures a registry.
type Options struct {
	Store           ConversationStore
	Engine          engine.Engine
	Catalog         *model.Catalog
	Hub             *hub.Hub
	Premium         PremiumChecker
	Feedback        session.FeedbackSink
	PageText        session.PageTextProvider
	Questions       suggest.QuestionSource
	ActionMenu      []ActionGroup
	DefaultModelKey string
	RequestTimeout  time.Duration
	PremiumRefresh  time.Duration
	Logger          *slog.Logger
}

// Registry owns conversation metadata and the live sessions bound to them.
type Registry struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session

	premiumMu      sync.Mutex
	premiumState   model.PremiumState
	premiumInfo    *PremiumInfo
	premiumFetched time.Time
	refreshing     bool

	stateMu           sync.Mutex
	agreementAccepted bool
	premiumPromptDone bool
	defaultConvID     string
}

// New creates a registry.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PremiumRefresh <= 0 {
		opts.PremiumRefresh = defaultPremiumRefreshInterval
	}
	return &Registry{
		opts:     opts,
		logger:   logger.With("component", "registry"),
		sessions: make(map[string]*session.Session),
	}
}

// ListVisible returns metadata for all conversations not hidden from the
// list, most recently active first. No session is created for this query.
func (r *Registry) ListVisible(ctx context.Context) ([]Meta, error) {
	conversations, err := r.opts.Store.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(conversations))
	for _, c := range conversations {
		if c.Hidden {
			continue
		}
		out = append(out, Meta{ID: c.ID, Title: c.Title, HasContent: c.HasContent})
	}
	return out, nil
}

// NewConversation creates a conversation and binds a session to it.
func (r *Registry) NewConversation(ctx context.Context) (*session.Session, error) {
	id := uuid.New().String()
	now := time.Now()
	if err := r.opts.Store.CreateConversation(ctx, &store.Conversation{
		ID:        id,
		Title:     "New conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	s, err := r.Bind(ctx, id)
	if err != nil {
		return nil, err
	}

	r.publishGlobal(hub.KindConversationListChanged, nil)
	return s, nil
}

// Bind returns the live session for a conversation, creating one lazily for
// an existing or new conversation ID. Rebinding the same identifier always
// returns the same session, never a duplicate.
func (r *Registry) Bind(ctx context.Context, conversationID string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[conversationID]; ok {
		return s, nil
	}

	// Lazily create the conversation record when binding a fresh ID.
	_, err := r.opts.Store.GetConversation(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		now := time.Now()
		createErr := r.opts.Store.CreateConversation(ctx, &store.Conversation{
			ID:        conversationID,
			Title:     "New conversation",
			CreatedAt: now,
			UpdatedAt: now,
		})
		if createErr != nil && !errors.Is(createErr, store.ErrDuplicateConversation) {
			return nil, createErr
		}
	} else if err != nil {
		return nil, err
	}

	s, err := session.New(ctx, session.Options{
		ConversationID:  conversationID,
		Engine:          r.opts.Engine,
		Catalog:         r.opts.Catalog,
		Premium:         r.PremiumState,
		Store:           r.opts.Store,
		Hub:             r.opts.Hub,
		Feedback:        r.opts.Feedback,
		PageText:        r.opts.PageText,
		Questions:       r.opts.Questions,
		DefaultModelKey: r.opts.DefaultModelKey,
		RequestTimeout:  r.opts.RequestTimeout,
		Logger:          r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.sessions[conversationID] = s
	r.logger.Debug("session bound", "conversation_id", conversationID)
	return s, nil
}

// Delete removes a conversation, tearing down its live session.
func (r *Registry) Delete(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	if s, ok := r.sessions[conversationID]; ok {
		s.Close()
		delete(r.sessions, conversationID)
	}
	r.mu.Unlock()

	if err := r.opts.Store.DeleteConversation(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}

	r.publishGlobal(hub.KindConversationListChanged, nil)
	return nil
}

// Release tears down the live session for a conversation without deleting
// its durable history. The next Bind recreates the session from the store.
func (r *Registry) Release(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[conversationID]; ok {
		s.Close()
		delete(r.sessions, conversationID)
		r.logger.Debug("session released", "conversation_id", conversationID)
	}
}

// Close tears down every live session. Durable history is untouched.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}

// ActionMenu returns the static grouped quick-action definitions. This is
// configuration data, not computed state.
func (r *Registry) ActionMenu() []ActionGroup {
	return r.opts.ActionMenu
}

// MarkAgreementAccepted records that the user accepted the usage agreement
// and broadcasts the change.
func (r *Registry) MarkAgreementAccepted() {
	r.stateMu.Lock()
	r.agreementAccepted = true
	r.stateMu.Unlock()

	r.publishGlobal(hub.KindAgreementAccepted, nil)
}

// AgreementAccepted reports whether the agreement was accepted.
func (r *Registry) AgreementAccepted() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.agreementAccepted
}

// CanShowPremiumPrompt reports whether the premium upsell may be shown.
func (r *Registry) CanShowPremiumPrompt() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return !r.premiumPromptDone
}

// DismissPremiumPrompt permanently hides the premium upsell.
func (r *Registry) DismissPremiumPrompt() {
	r.stateMu.Lock()
	r.premiumPromptDone = true
	r.stateMu.Unlock()
}

// SetDefaultConversation marks the conversation the host UI opens by default.
func (r *Registry) SetDefaultConversation(conversationID string) {
	r.stateMu.Lock()
	r.defaultConvID = conversationID
	r.stateMu.Unlock()

	r.publishGlobal(hub.KindDefaultConversationChanged, conversationID)
}

// DefaultConversation returns the host UI's default conversation ID.
func (r *Registry) DefaultConversation() string {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.defaultConvID
}

func (r *Registry) publishGlobal(kind hub.Kind, payload any) {
	if r.opts.Hub == nil {
		return
	}
	r.opts.Hub.Publish(hub.Notification{Kind: kind, ConversationID: hub.ScopeGlobal, Payload: payload})
}
