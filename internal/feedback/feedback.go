// ABOUTME: HTTP feedback sink delivering ratings and free-form feedback to a remote service
// ABOUTME: Fire-and-forget from the session's point of view; failures never alter conversation state

package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPSink posts ratings and feedback to a remote feedback service as JSON.
type HTTPSink struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSink creates a sink for the given service base URL. Pass nil client
// for a default with a 10s timeout.
func NewHTTPSink(baseURL string, client *http.Client, logger *slog.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With("component", "feedback"),
	}
}

type ratingRequest struct {
	ConversationID string `json:"conversation_id"`
	TurnID         string `json:"turn_id"`
	Liked          bool   `json:"liked"`
}

type ratingResponse struct {
	RatingID string `json:"rating_id"`
}

type feedbackRequest struct {
	Category string `json:"category"`
	Feedback string `json:"feedback"`
	RatingID string `json:"rating_id,omitempty"`
}

// RateTurn submits a thumbs-up or thumbs-down for one assistant turn and
// returns the service-assigned rating ID.
func (s *HTTPSink) RateTurn(ctx context.Context, conversationID, turnID string, liked bool) (string, error) {
	body := ratingRequest{
		ConversationID: conversationID,
		TurnID:         turnID,
		Liked:          liked,
	}

	resp, err := s.post(ctx, "/ratings", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("rating rejected with status %d", resp.StatusCode)
	}

	var out ratingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode rating response: %w", err)
	}
	return out.RatingID, nil
}

// SendFeedback submits categorized free-form feedback, optionally attached to
// an earlier rating.
func (s *HTTPSink) SendFeedback(ctx context.Context, category, feedbackText, ratingID string) error {
	body := feedbackRequest{
		Category: category,
		Feedback: feedbackText,
		RatingID: ratingID,
	}

	resp, err := s.post(ctx, "/feedback", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("feedback rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSink) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feedback service unreachable: %w", err)
	}
	return resp, nil
}
