// ABOUTME: Per-conversation state machine: turn history, streaming cycle, cancellation, retry
// ABOUTME: All mutations serialize on one lock; stale cycles are fenced by a generation counter

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-assist/internal/content"
	"github.com/2389/coven-assist/internal/engine"
	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/model"
	"github.com/2389/coven-assist/internal/store"
	"github.com/2389/coven-assist/internal/suggest"
)

// ErrEmptyEntry is returned when a submission carries no text.
var ErrEmptyEntry = errors.New("entry text must not be empty")

// ErrNotInErrorState is returned for retry/clear-error outside the error state.
var ErrNotInErrorState = errors.New("session is not in an error state")

// ErrTurnNotFound is returned when a turn index or ID resolves to nothing.
var ErrTurnNotFound = errors.New("turn not found")

const persistTimeout = 5 * time.Second

// State is the session's lifecycle state. A session is reusable indefinitely;
// there is no terminal state short of destruction.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateError
)

// String returns the state name used in logs and API responses.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// TurnStore defines what the session needs from storage.
type TurnStore interface {
	SaveTurn(ctx context.Context, t *store.TurnRecord) error
	GetTurns(ctx context.Context, conversationID string) ([]*store.TurnRecord, error)
}

// FeedbackSink receives ratings and free-form feedback. Implementations talk
// to a remote service; failures surface as empty rating IDs, never as session
// state changes.
type FeedbackSink interface {
	RateTurn(ctx context.Context, conversationID, turnID string, liked bool) (string, error)
	SendFeedback(ctx context.Context, category, feedback, ratingID string) error
}

// PageTextProvider supplies the associated page's text for grounding
// requests and generating suggested questions.
type PageTextProvider interface {
	PageText(ctx context.Context) (string, error)
}

// Options configures a session.
type Options struct {
	ConversationID  string
	Engine          engine.Engine
	Catalog         *model.Catalog
	Premium         func() model.PremiumState
	Store           TurnStore
	Hub             *hub.Hub
	Feedback        FeedbackSink
	PageText        PageTextProvider
	Questions       suggest.QuestionSource
	DefaultModelKey string
	RequestTimeout  time.Duration
	Logger          *slog.Logger
}

// Session owns all mutable state for one conversation. Mutating operations
// serialize on mu; reads return snapshots. At most one engine request is
// outstanding at any time, fenced by a generation counter so events from a
// cancelled cycle can never reach the history.
type Session struct {
	id     string
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	errKind     engine.ErrorKind
	turns       []*Turn
	modelKey    string
	sendPage    bool
	generation  uint64
	cancelCycle context.CancelFunc

	eng      engine.Engine
	catalog  *model.Catalog
	premium  func() model.PremiumState
	store    TurnStore
	hub      *hub.Hub
	feedback FeedbackSink
	pageText PageTextProvider
	timeout  time.Duration

	tracker     *content.Tracker
	suggestions *suggest.Engine
}

// New creates a session and restores its durable history. Error state and
// the in-flight flag are never persisted: every restored session starts Idle
// with no pending request.
func New(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session", "conversation_id", opts.ConversationID)

	premium := opts.Premium
	if premium == nil {
		premium = func() model.PremiumState { return model.PremiumUnknown }
	}

	s := &Session{
		id:       opts.ConversationID,
		logger:   logger,
		state:    StateIdle,
		modelKey: opts.DefaultModelKey,
		sendPage: true,
		eng:      opts.Engine,
		catalog:  opts.Catalog,
		premium:  premium,
		store:    opts.Store,
		hub:      opts.Hub,
		feedback: opts.Feedback,
		pageText: opts.PageText,
		timeout:  opts.RequestTimeout,
	}

	s.tracker = content.NewTracker(s.onContentChanged, logger)
	s.suggestions = suggest.NewEngine(opts.Questions, s.onSuggestionsChanged, logger)

	if opts.Store != nil {
		records, err := opts.Store.GetTurns(ctx, opts.ConversationID)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			s.turns = append(s.turns, turnFromRecord(r))
		}
	}

	return s, nil
}

// ConversationID returns the owning conversation's identifier.
func (s *Session) ConversationID() string {
	return s.id
}

// SubmitRequest carries one human entry.
type SubmitRequest struct {
	Text         string
	ActionTag    string
	SelectedText string
	FromSearch   bool
}

// Submit appends a human turn, opens a streaming assistant turn, and
// dispatches the engine request. If a request is already in flight it is
// cancelled first and its partial assistant turn is hidden: the cancellation
// always wins over a racing completion.
//
// Submit succeeds locally even when the engine is unreachable; transport
// failures surface asynchronously as the error state.
func (s *Session) Submit(req SubmitRequest) error {
	if req.Text == "" {
		return ErrEmptyEntry
	}

	s.mu.Lock()
	if s.state == StateAwaitingResponse {
		s.cancelCurrentLocked()
	}

	s.generation++
	gen := s.generation
	now := time.Now()

	human := &Turn{
		ID:           uuid.New().String(),
		Role:         RoleHuman,
		ActionTag:    req.ActionTag,
		Text:         req.Text,
		SelectedText: req.SelectedText,
		FromSearch:   req.FromSearch,
		CreatedAt:    now,
		frozen:       true,
	}
	assistant := &Turn{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		CreatedAt: now,
	}
	s.turns = append(s.turns, human, assistant)
	s.persistTurnLocked(human)

	s.state = StateAwaitingResponse
	s.errKind = engine.ErrorNone

	engReq := s.buildRequestLocked()
	sendPage := s.sendPage

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCycle = cancel
	s.mu.Unlock()

	s.logger.Debug("human entry submitted",
		"turn_id", human.ID,
		"action_tag", req.ActionTag,
		"generation", gen)

	s.publish(hub.KindHistoryUpdated, nil)
	s.publish(hub.KindInProgressChanged, true)

	go s.runCycle(ctx, gen, engReq, sendPage, assistant.ID)
	return nil
}

// SubmitSummarizationRequest submits the fixed summarize command.
func (s *Session) SubmitSummarizationRequest() error {
	return s.Submit(SubmitRequest{Text: "Summarize this page", ActionTag: ActionSummarizePage})
}

// cancelCurrentLocked abandons the in-flight cycle. The generation bump by
// the caller fences out any late events; the partial assistant turn is
// hidden rather than deleted so the record survives for diagnostics.
// releaseCycleLocked cancels and clears the current cycle's context. On a
// terminal event the cycle is already over; cancelling only releases the
// context's resources.
func (s *Session) releaseCycleLocked() {
	if s.cancelCycle != nil {
		s.cancelCycle()
		s.cancelCycle = nil
	}
}

func (s *Session) cancelCurrentLocked() {
	s.releaseCycleLocked()
	if last := s.lastStreamingTurnLocked(); last != nil {
		last.frozen = true
		last.Hidden = true
		s.persistTurnLocked(last)
		s.logger.Debug("cancelled in-flight cycle", "turn_id", last.ID)
	}
}

// runCycle drives one engine request. It owns no session state directly;
// every mutation goes through applyEvent, which drops anything from a stale
// generation.
func (s *Session) runCycle(ctx context.Context, gen uint64, req *engine.Request, sendPage bool, assistantID string) {
	if sendPage && s.pageText != nil {
		text, err := s.pageText.PageText(ctx)
		if err != nil {
			s.logger.Warn("page text unavailable, continuing without content", "error", err)
		} else {
			req.PageContent = text
		}
	}

	events, err := s.eng.Send(ctx, req)
	if err != nil {
		s.logger.Error("engine dispatch failed", "error", err)
		s.applyEvent(gen, assistantID, engine.ErrorEvent(engine.ErrorConnectionIssue))
		return
	}

	terminal := false
	for ev := range events {
		if !s.applyEvent(gen, assistantID, ev) {
			// Keep draining so the producer never blocks on a buffered
			// channel nobody reads.
			for range events {
			}
			return
		}
		if ev.Terminal() {
			terminal = true
		}
	}
	if !terminal {
		// The engine contract requires a terminal event; a closed channel
		// without one is a transport fault.
		s.applyEvent(gen, assistantID, engine.ErrorEvent(engine.ErrorConnectionIssue))
	}
}

// applyEvent folds one engine event into the session. Returns false when the
// event belongs to a superseded generation and the cycle should stop.
func (s *Session) applyEvent(gen uint64, assistantID string, ev engine.Event) bool {
	s.mu.Lock()

	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("dropping stale event", "generation", gen, "kind", ev.Kind)
		return false
	}

	turn := s.turnByIDLocked(assistantID)
	if turn == nil || turn.frozen {
		s.mu.Unlock()
		return false
	}

	switch ev.Kind {
	case engine.EventDone:
		turn.Events = append(turn.Events, ev)
		turn.frozen = true
		s.state = StateIdle
		s.releaseCycleLocked()
		s.persistTurnLocked(turn)
		s.mu.Unlock()

		s.logger.Debug("cycle completed", "turn_id", assistantID, "generation", gen)
		s.publish(hub.KindHistoryUpdated, nil)
		s.publish(hub.KindInProgressChanged, false)
		return true

	case engine.EventError:
		turn.Events = append(turn.Events, ev)
		turn.frozen = true
		s.state = StateError
		s.errKind = ev.ErrKind
		s.releaseCycleLocked()
		s.persistTurnLocked(turn)
		s.mu.Unlock()

		s.logger.Warn("cycle failed", "turn_id", assistantID, "error_kind", ev.ErrKind.String())
		s.publish(hub.KindResponseErrorChanged, ev.ErrKind.String())
		s.publish(hub.KindInProgressChanged, false)
		return true

	default:
		turn.Events = append(turn.Events, ev)
		if ev.Kind == engine.EventText {
			turn.Text += ev.Text
		}
		s.mu.Unlock()

		s.publish(hub.KindHistoryUpdated, nil)
		return true
	}
}

// buildRequestLocked assembles the engine request from the visible, frozen
// history using each turn's current text. The action tag comes from the
// entry being submitted, never from earlier tagged turns in the history.
func (s *Session) buildRequestLocked() *engine.Request {
	req := &engine.Request{ModelKey: s.modelKey}
	for _, t := range s.turns {
		if t.Hidden || t.Streaming() {
			continue
		}
		role := engine.RoleHuman
		if t.Role == RoleAssistant {
			role = engine.RoleAssistant
		}
		text := t.CurrentText()
		if text == "" {
			continue
		}
		req.Messages = append(req.Messages, engine.Message{Role: role, Text: text})
	}
	if last := s.lastHumanTurnLocked(); last != nil {
		req.ActionTag = last.ActionTag
	}
	return req
}

func (s *Session) turnByIDLocked(id string) *Turn {
	for _, t := range s.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Session) lastStreamingTurnLocked() *Turn {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Streaming() {
			return s.turns[i]
		}
	}
	return nil
}

func (s *Session) lastHumanTurnLocked() *Turn {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleHuman && !s.turns[i].Hidden {
			return s.turns[i]
		}
	}
	return nil
}

// persistTurnLocked saves a turn with a detached timeout context so
// persistence survives request cancellation. Failures are logged, never
// surfaced: history in memory stays authoritative for the live session.
func (s *Session) persistTurnLocked(t *Turn) {
	if s.store == nil {
		return
	}
	seq := -1
	for i, candidate := range s.turns {
		if candidate.ID == t.ID {
			seq = i
			break
		}
	}
	record := t.toRecord(s.id, seq)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.store.SaveTurn(ctx, record); err != nil {
			s.logger.Error("failed to persist turn", "turn_id", record.ID, "error", err)
		}
	}()
}

func (s *Session) publish(kind hub.Kind, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(hub.Notification{Kind: kind, ConversationID: s.id, Payload: payload})
}

// onContentChanged fans associated-content updates out to observers and
// rearms the suggestion engine. Page navigation is independent of chat
// activity, so this fires its own notification kind.
func (s *Session) onContentChanged(info content.SiteInfo) {
	s.suggestions.ContentChanged(info.AssociationPossible && info.Resolved())
	s.publish(hub.KindAssociatedContentChanged, info)
}

// onSuggestionsChanged pushes suggestion status and results through the same
// observer channel as turn events.
func (s *Session) onSuggestionsChanged(status suggest.Status, questions []string) {
	s.publish(hub.KindSuggestedQuestionsChanged, SuggestedQuestions{
		Status:    status.String(),
		Questions: questions,
	})
}

// SuggestedQuestions is the payload for suggested-questions notifications.
type SuggestedQuestions struct {
	Status    string   `json:"status"`
	Questions []string `json:"questions"`
}
