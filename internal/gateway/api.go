// ABOUTME: JSON request/response handlers for the registry and session contracts
// ABOUTME: Validation failures reject synchronously; engine faults surface through the session error state

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/2389/coven-assist/internal/content"
	"github.com/2389/coven-assist/internal/model"
	"github.com/2389/coven-assist/internal/registry"
	"github.com/2389/coven-assist/internal/session"
	"github.com/2389/coven-assist/internal/suggest"
)

// SubmitEntryRequest is the JSON body for POST .../entries.
type SubmitEntryRequest struct {
	Text         string `json:"text"`
	ActionTag    string `json:"action_tag,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
	FromSearch   bool   `json:"from_search,omitempty"`
}

// ModifyRequest is the JSON body for POST .../edits.
type ModifyRequest struct {
	TurnIndex int    `json:"turn_index"`
	Text      string `json:"text"`
}

// ChangeModelRequest is the JSON body for POST .../model.
type ChangeModelRequest struct {
	ModelKey string `json:"model_key"`
}

// PageContentsRequest is the JSON body for POST .../page-contents.
type PageContentsRequest struct {
	Send bool `json:"send"`
}

// RatingRequest is the JSON body for POST .../rating.
type RatingRequest struct {
	TurnID string `json:"turn_id"`
	Liked  bool   `json:"liked"`
}

// FeedbackRequest is the JSON body for POST .../feedback.
type FeedbackRequest struct {
	Category string `json:"category"`
	Feedback string `json:"feedback"`
	RatingID string `json:"rating_id,omitempty"`
}

// ContentRequest is the JSON body for POST .../content.
type ContentRequest struct {
	Title               string `json:"title,omitempty"`
	HostURL             string `json:"host_url,omitempty"`
	AssociationPossible bool   `json:"association_possible"`
	ContentUsedPercent  int    `json:"content_used_percent"`
	IsContentRefined    bool   `json:"is_content_refined"`
}

// SessionResponse is the post-call snapshot of a session.
type SessionResponse struct {
	ConversationID         string `json:"conversation_id"`
	State                  string `json:"state"`
	Error                  string `json:"error"`
	RequestInProgress      bool   `json:"request_in_progress"`
	ModelKey               string `json:"model_key"`
	ShouldSendPageContents bool   `json:"should_send_page_contents"`
}

// TurnResponse is one history entry.
type TurnResponse struct {
	ID           string         `json:"id"`
	Role         string         `json:"role"`
	ActionTag    string         `json:"action_tag,omitempty"`
	Text         string         `json:"text"`
	CurrentText  string         `json:"current_text"`
	SelectedText string         `json:"selected_text,omitempty"`
	FromSearch   bool           `json:"from_search,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Edits        []EditResponse `json:"edits,omitempty"`
}

// EditResponse is one edit revision.
type EditResponse struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelResponse is one catalog entry.
type ModelResponse struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Maker    string `json:"maker,omitempty"`
	Tier     string `json:"tier"`
	IsCustom bool   `json:"is_custom"`
}

func (g *Gateway) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := g.registry.ListVisible(r.Context())
		if err != nil {
			g.logger.Error("failed to list conversations", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		s, err := g.registry.NewConversation(r.Context())
		if err != nil {
			g.logger.Error("failed to create conversation", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"conversation_id": s.ConversationID()})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request, conversationID string) {
	s, ok := g.bindForRequest(w, r, conversationID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionSnapshot(s))
}

func (g *Gateway) handleDeleteConversation(w http.ResponseWriter, r *http.Request, conversationID string) {
	err := g.registry.Delete(r.Context(), conversationID)
	if errors.Is(err, registry.ErrConversationNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		g.logger.Error("failed to delete conversation", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	history := s.History()
	out := make([]TurnResponse, len(history))
	for i, t := range history {
		out[i] = turnResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleSubmitEntry(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req SubmitEntryRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if g.duplicateSubmission(r, s.ConversationID()) {
		writeJSON(w, http.StatusAccepted, sessionSnapshot(s))
		return
	}

	err := s.Submit(session.SubmitRequest{
		Text:         req.Text,
		ActionTag:    req.ActionTag,
		SelectedText: req.SelectedText,
		FromSearch:   req.FromSearch,
	})
	if errors.Is(err, session.ErrEmptyEntry) {
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err != nil {
		g.logger.Error("submit failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, sessionSnapshot(s))
}

func (g *Gateway) handleSummarize(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.duplicateSubmission(r, s.ConversationID()) {
		writeJSON(w, http.StatusAccepted, sessionSnapshot(s))
		return
	}
	if err := s.SubmitSummarizationRequest(); err != nil {
		g.logger.Error("summarize failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, sessionSnapshot(s))
}

func (g *Gateway) handleModify(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ModifyRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.ModifyConversation(req.TurnIndex, req.Text)
	switch {
	case errors.Is(err, session.ErrTurnNotFound):
		g.sendJSONError(w, http.StatusBadRequest, "turn index out of range")
	case errors.Is(err, session.ErrEmptyEntry):
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
	case err != nil:
		g.logger.Error("modify failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleChangeModel(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ChangeModelRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.ChangeModel(req.ModelKey)
	switch {
	case errors.Is(err, model.ErrModelNotFound):
		g.sendJSONError(w, http.StatusNotFound, "model not found")
	case errors.Is(err, model.ErrTierRestricted):
		g.sendJSONError(w, http.StatusForbidden, "model restricted to premium entitlement")
	case err != nil:
		g.logger.Error("model change failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, sessionSnapshot(s))
	}
}

func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	models := s.Models()
	out := make([]ModelResponse, len(models))
	for i, m := range models {
		out[i] = modelResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handlePageContents(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req PageContentsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.SetShouldSendPageContents(req.Send)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleRetry(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	err := s.Retry()
	if errors.Is(err, session.ErrNotInErrorState) {
		g.sendJSONError(w, http.StatusConflict, "session is not in an error state")
		return
	}
	if err != nil {
		g.logger.Error("retry failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, sessionSnapshot(s))
}

func (g *Gateway) handleClearError(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	failed, err := s.ClearErrorAndGetFailedMessage()
	if errors.Is(err, session.ErrNotInErrorState) {
		g.sendJSONError(w, http.StatusConflict, "session is not in an error state")
		return
	}
	if err != nil {
		g.logger.Error("clear-error failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, turnResponse(failed))
}

func (g *Gateway) handleRating(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req RatingRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ratingID := s.RateMessage(r.Context(), req.TurnID, req.Liked)
	writeJSON(w, http.StatusOK, map[string]string{"rating_id": ratingID})
}

func (g *Gateway) handleFeedback(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req FeedbackRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SendFeedback(r.Context(), req.Category, req.Feedback, req.RatingID); err != nil {
		g.logger.Warn("feedback delivery failed", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, "feedback delivery failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleContent(w http.ResponseWriter, r *http.Request, s *session.Session) {
	switch r.Method {
	case http.MethodGet:
		info := s.AssociatedContent()
		writeJSON(w, http.StatusOK, contentResponse(info))

	case http.MethodPost:
		var req ContentRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		err := s.UpdateAssociatedContent(content.SiteInfo{
			Title:               req.Title,
			HostURL:             req.HostURL,
			AssociationPossible: req.AssociationPossible,
			ContentUsedPercent:  req.ContentUsedPercent,
			IsContentRefined:    req.IsContentRefined,
		})
		if errors.Is(err, content.ErrPercentageOutOfRange) {
			g.sendJSONError(w, http.StatusBadRequest, "content_used_percent must be within [0, 100]")
			return
		}
		if err != nil {
			g.logger.Error("content update failed", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleQuestions(w http.ResponseWriter, r *http.Request, s *session.Session) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    s.SuggestionStatus().String(),
			"questions": s.SuggestedQuestionsList(),
		})

	case http.MethodPost:
		err := s.GenerateQuestions(r.Context())
		if errors.Is(err, suggest.ErrNotReady) {
			g.sendJSONError(w, http.StatusConflict, "suggestions cannot be generated right now")
			return
		}
		if err != nil {
			g.logger.Error("question generation failed", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusAccepted)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DefaultConversationRequest is the JSON body for POST /api/default-conversation.
type DefaultConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (g *Gateway) handleDefaultConversation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{
			"conversation_id": g.registry.DefaultConversation(),
		})

	case http.MethodPost:
		var req DefaultConversationRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.registry.SetDefaultConversation(req.ConversationID)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PageTextRequest is the JSON body for POST /api/page.
type PageTextRequest struct {
	Text string `json:"text"`
}

func (g *Gateway) handlePageText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.pages == nil {
		g.sendJSONError(w, http.StatusServiceUnavailable, "page content not supported")
		return
	}
	var req PageTextRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	g.pages.SetText(req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleAcceptAgreement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	g.registry.MarkAgreementAccepted()
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleActionMenu(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, g.registry.ActionMenu())
}

func (g *Gateway) handlePremiumStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := g.registry.GetPremiumStatus()
	resp := map[string]any{
		"state":                   status.State.String(),
		"can_show_premium_prompt": g.registry.CanShowPremiumPrompt(),
	}
	if status.Info != nil {
		resp["remaining_credentials"] = status.Info.RemainingCredentials
		if status.Info.NextRenewal != nil {
			resp["next_renewal"] = status.Info.NextRenewal
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleDismissPremiumPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	g.registry.DismissPremiumPrompt()
	w.WriteHeader(http.StatusNoContent)
}

func sessionSnapshot(s *session.Session) SessionResponse {
	return SessionResponse{
		ConversationID:         s.ConversationID(),
		State:                  s.State().String(),
		Error:                  s.APIError().String(),
		RequestInProgress:      s.IsRequestInProgress(),
		ModelKey:               s.ModelKey(),
		ShouldSendPageContents: s.ShouldSendPageContents(),
	}
}

func turnResponse(t *session.Turn) TurnResponse {
	out := TurnResponse{
		ID:           t.ID,
		Role:         string(t.Role),
		ActionTag:    t.ActionTag,
		Text:         t.Text,
		CurrentText:  t.CurrentText(),
		SelectedText: t.SelectedText,
		FromSearch:   t.FromSearch,
		CreatedAt:    t.CreatedAt,
	}
	for _, e := range t.Edits {
		out.Edits = append(out.Edits, EditResponse{Text: e.Text, CreatedAt: e.CreatedAt})
	}
	return out
}

func modelResponse(m *model.Model) ModelResponse {
	out := ModelResponse{
		Key:      m.Key,
		Tier:     m.Tier().String(),
		IsCustom: m.IsCustom(),
	}
	if m.Hosted != nil {
		out.Name = m.Hosted.Name
		out.Maker = m.Hosted.Maker
	} else if m.Custom != nil {
		out.Name = m.Custom.RequestName
	}
	return out
}

func contentResponse(info content.SiteInfo) map[string]any {
	return map[string]any{
		"title":                info.Title,
		"host_url":             info.HostURL,
		"association_possible": info.AssociationPossible,
		"content_used_percent": info.ContentUsedPercent,
		"is_content_refined":   info.IsContentRefined,
		"resolved":             info.Resolved(),
	}
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
