// ABOUTME: Session operations: retry, edits, model selection, feedback, and read queries
// ABOUTME: Entitlement and input validation reject synchronously; only engine faults reach the error state

package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-assist/internal/content"
	"github.com/2389/coven-assist/internal/engine"
	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/model"
	"github.com/2389/coven-assist/internal/store"
	"github.com/2389/coven-assist/internal/suggest"
)

// Retry resubmits the most recent human turn's current text, byte for byte.
// Valid only from the error state. The failed assistant turn is hidden and a
// fresh streaming turn takes its place, so the visible history length does
// not change.
func (s *Session) Retry() error {
	s.mu.Lock()
	if s.state != StateError {
		s.mu.Unlock()
		return ErrNotInErrorState
	}

	human := s.lastHumanTurnLocked()
	if human == nil {
		s.mu.Unlock()
		return ErrTurnNotFound
	}

	// Hide the failed assistant turn; its partial events stay on record.
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleAssistant && !s.turns[i].Hidden {
			s.turns[i].Hidden = true
			s.persistTurnLocked(s.turns[i])
			break
		}
	}

	s.generation++
	gen := s.generation

	assistant := &Turn{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
	s.turns = append(s.turns, assistant)

	s.state = StateAwaitingResponse
	s.errKind = engine.ErrorNone

	engReq := s.buildRequestLocked()
	sendPage := s.sendPage

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCycle = cancel
	s.mu.Unlock()

	s.logger.Debug("retrying failed submission", "turn_id", human.ID, "generation", gen)

	s.publish(hub.KindResponseErrorChanged, engine.ErrorNone.String())
	s.publish(hub.KindHistoryUpdated, nil)
	s.publish(hub.KindInProgressChanged, true)

	go s.runCycle(ctx, gen, engReq, sendPage, assistant.ID)
	return nil
}

// ClearErrorAndGetFailedMessage returns the human turn whose cycle failed so
// the caller can offer it back for editing, and clears the error state. No
// user input is ever silently lost.
func (s *Session) ClearErrorAndGetFailedMessage() (*Turn, error) {
	s.mu.Lock()
	if s.state != StateError {
		s.mu.Unlock()
		return nil, ErrNotInErrorState
	}

	human := s.lastHumanTurnLocked()
	if human == nil {
		s.mu.Unlock()
		return nil, ErrTurnNotFound
	}

	s.state = StateIdle
	s.errKind = engine.ErrorNone
	failed := human.clone()
	s.mu.Unlock()

	s.publish(hub.KindResponseErrorChanged, engine.ErrorNone.String())
	return failed, nil
}

// ModifyConversation appends an edit revision to the turn at the given index
// in the visible history. The original text is never mutated, and no engine
// call is triggered.
func (s *Session) ModifyConversation(turnIndex int, newText string) error {
	if newText == "" {
		return ErrEmptyEntry
	}

	s.mu.Lock()
	visible := s.visibleTurnsLocked()
	if turnIndex < 0 || turnIndex >= len(visible) {
		s.mu.Unlock()
		return ErrTurnNotFound
	}

	turn := visible[turnIndex]
	turn.Edits = append(turn.Edits, store.Revision{Text: newText, CreatedAt: time.Now()})
	s.persistTurnLocked(turn)
	s.mu.Unlock()

	s.logger.Debug("turn edited", "turn_id", turn.ID, "revisions", len(turn.Edits))
	s.publish(hub.KindHistoryUpdated, nil)
	return nil
}

// ChangeModel selects the model for subsequent submissions. Models above the
// caller's entitlement tier are rejected synchronously; the session state is
// untouched by a rejection.
func (s *Session) ChangeModel(modelKey string) error {
	if s.catalog != nil {
		if err := s.catalog.CheckAccess(modelKey, s.premium()); err != nil {
			s.logger.Debug("model change rejected", "model", modelKey, "error", err)
			return err
		}
	}

	s.mu.Lock()
	s.modelKey = modelKey
	s.mu.Unlock()

	s.publish(hub.KindModelDataChanged, modelKey)
	return nil
}

// Models returns the catalog entries selectable under the current
// entitlement, in catalog order.
func (s *Session) Models() []*model.Model {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.ResolveAccessible(s.premium())
}

// ModelKey returns the currently selected model key.
func (s *Session) ModelKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelKey
}

// SetShouldSendPageContents flips the content flag. Takes effect on the next
// submission, never retroactively.
func (s *Session) SetShouldSendPageContents(send bool) {
	s.mu.Lock()
	s.sendPage = send
	s.mu.Unlock()
}

// ShouldSendPageContents returns the current content flag.
func (s *Session) ShouldSendPageContents() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendPage
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// APIError returns the current error kind, ErrorNone outside the error state.
func (s *Session) APIError() engine.ErrorKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errKind
}

// IsRequestInProgress reports whether an engine request is outstanding.
func (s *Session) IsRequestInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingResponse
}

// History returns the visible turns in chat order as snapshots.
func (s *Session) History() []*Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.visibleTurnsLocked()
	out := make([]*Turn, len(visible))
	for i, t := range visible {
		out[i] = t.clone()
	}
	return out
}

func (s *Session) visibleTurnsLocked() []*Turn {
	out := make([]*Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if !t.Hidden {
			out = append(out, t)
		}
	}
	return out
}

// RateMessage records a like/dislike for a turn. Returns an opaque rating ID
// for later correlation, or empty on failure; ratings never touch the state
// machine.
func (s *Session) RateMessage(ctx context.Context, turnID string, liked bool) string {
	s.mu.Lock()
	turn := s.turnByIDLocked(turnID)
	s.mu.Unlock()

	if turn == nil || s.feedback == nil {
		return ""
	}

	ratingID, err := s.feedback.RateTurn(ctx, s.id, turnID, liked)
	if err != nil {
		s.logger.Warn("rating failed", "turn_id", turnID, "error", err)
		return ""
	}
	return ratingID
}

// SendFeedback forwards free-form feedback, optionally correlated to an
// earlier rating.
func (s *Session) SendFeedback(ctx context.Context, category, feedbackText, ratingID string) error {
	if s.feedback == nil {
		return nil
	}
	return s.feedback.SendFeedback(ctx, category, feedbackText, ratingID)
}

// UpdateAssociatedContent replaces the page context snapshot. Out-of-range
// content percentages are rejected at ingestion.
func (s *Session) UpdateAssociatedContent(info content.SiteInfo) error {
	return s.tracker.Update(info)
}

// AssociatedContent returns the current page context snapshot.
func (s *Session) AssociatedContent() content.SiteInfo {
	return s.tracker.Current()
}

// GenerateQuestions kicks off asynchronous follow-up question generation.
// Results arrive via the suggested-questions notification, not as a return
// value. The generation outlives ctx: callers like HTTP handlers return
// before the result exists, and their context cancelling must not abort the
// engine call. The engine enforces its own request deadline.
func (s *Session) GenerateQuestions(ctx context.Context) error {
	var text string
	if s.pageText != nil {
		fetched, err := s.pageText.PageText(ctx)
		if err != nil {
			s.logger.Warn("page text unavailable for suggestions", "error", err)
		} else {
			text = fetched
		}
	}
	return s.suggestions.Generate(context.WithoutCancel(ctx), text)
}

// SuggestionStatus returns the suggestion engine's status.
func (s *Session) SuggestionStatus() suggest.Status {
	return s.suggestions.Status()
}

// SuggestedQuestionsList returns the generated questions, if any.
func (s *Session) SuggestedQuestionsList() []string {
	return s.suggestions.Questions()
}

// Close abandons any in-flight request. Called when the owning conversation
// is removed or all bindings are released.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCycle != nil {
		s.cancelCycle()
		s.cancelCycle = nil
	}
	s.generation++
}
