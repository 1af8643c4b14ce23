// ABOUTME: OpenAI-compatible engine implementation with streaming chat completions
// ABOUTME: Maps transport, throttling, and context-window failures to engine error kinds

package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// eventBufferSize matches the response channel buffering used elsewhere
	// in the streaming pipeline.
	eventBufferSize = 16

	defaultRequestTimeout = 60 * time.Second
)

// summarizeInstruction is prepended for the summarize action tag.
const summarizeInstruction = "Summarize the provided page content concisely."

// actionSummarizePage matches the summarize action tag on submissions.
const actionSummarizePage = "summarize_page"

// actionInstruction maps an action tag to its system-message instruction.
// Tags without a dedicated instruction get none; the tagged entry's own text
// carries the intent.
func actionInstruction(tag string) string {
	switch tag {
	case actionSummarizePage:
		return summarizeInstruction
	default:
		return ""
	}
}

// OpenAIEngine talks to an OpenAI-compatible chat completion endpoint.
type OpenAIEngine struct {
	client  *openai.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIEngine creates an engine for the given endpoint. baseURL may be
// empty for the default OpenAI endpoint. A zero timeout falls back to the
// default request timeout. Pass nil logger for default.
func NewOpenAIEngine(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *OpenAIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
		logger:  logger.With("component", "engine"),
	}
}

// Send dispatches the request and streams completion fragments as events.
// The channel terminates with Done on success or Error on failure; transport
// failures never propagate as a panic or a hung stream.
func (e *OpenAIEngine) Send(ctx context.Context, req *Request) (<-chan Event, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyRequest
	}

	out := make(chan Event, eventBufferSize)
	go e.stream(ctx, req, out)
	return out, nil
}

func (e *OpenAIEngine) stream(ctx context.Context, req *Request, out chan<- Event) {
	defer close(out)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:    req.ModelKey,
		Messages: buildMessages(req),
		Stream:   true,
	}

	stream, err := e.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		e.logger.Error("engine dispatch failed", "model", req.ModelKey, "error", err)
		out <- ErrorEvent(classifyError(err))
		return
	}
	defer stream.Close()

	if req.PageContent != "" {
		out <- PageRefinedEvent(true)
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			out <- DoneEvent()
			return
		}
		if err != nil {
			e.logger.Warn("engine stream interrupted", "model", req.ModelKey, "error", err)
			out <- ErrorEvent(classifyError(err))
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			out <- TextEvent(delta)
		}
	}
}

// buildMessages converts a Request into the wire message list. Page content
// rides in the system message so it never collides with the turn history.
func buildMessages(req *Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	var sys strings.Builder
	sys.WriteString("You are a helpful assistant.")
	if instruction := actionInstruction(req.ActionTag); instruction != "" {
		sys.WriteString(" ")
		sys.WriteString(instruction)
	}
	if req.PageContent != "" {
		sys.WriteString("\n\nPage content:\n")
		sys.WriteString(req.PageContent)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: sys.String(),
	})

	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return msgs
}

// classifyError maps transport and API failures to engine error kinds.
func classifyError(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return ErrorRateLimit
		case apiErr.Code == "context_length_exceeded":
			return ErrorContextLimit
		case strings.Contains(strings.ToLower(apiErr.Message), "maximum context length"):
			return ErrorContextLimit
		}
		return ErrorConnectionIssue
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorConnectionIssue
	}
	return ErrorConnectionIssue
}
