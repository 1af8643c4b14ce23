// ABOUTME: Asynchronous follow-up question generator with its own small status machine
// ABOUTME: Results arrive through the session's notification channel, never as a return value

package suggest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNotReady is returned when generation is requested outside CanGenerate.
var ErrNotReady = errors.New("suggestion engine cannot generate in current status")

// Status is the generator's lifecycle state.
type Status int

const (
	// StatusNone means no associated content exists to generate from.
	StatusNone Status = iota
	// StatusCanGenerate means content is available and generation may start.
	StatusCanGenerate
	// StatusIsGenerating means a generation request is in flight.
	StatusIsGenerating
	// StatusHasGenerated means questions are available.
	StatusHasGenerated
)

// String returns the status name used in logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusCanGenerate:
		return "can_generate"
	case StatusIsGenerating:
		return "is_generating"
	case StatusHasGenerated:
		return "has_generated"
	default:
		return "unknown"
	}
}

// QuestionSource produces follow-up questions for the given page content.
type QuestionSource interface {
	SuggestQuestions(ctx context.Context, pageContent string) ([]string, error)
}

// Engine owns the suggestion status machine for one session. Generation is
// fire-and-forget: the outcome is delivered through the notify callback on
// the same channel as other session events.
type Engine struct {
	mu        sync.Mutex
	status    Status
	questions []string

	source QuestionSource
	notify func(status Status, questions []string)
	logger *slog.Logger
}

// NewEngine creates a suggestion engine. notify, if non-nil, fires after
// every status change. Pass nil logger for default.
func NewEngine(source QuestionSource, notify func(Status, []string), logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source: source,
		notify: notify,
		logger: logger.With("component", "suggest"),
	}
}

// Status returns the current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Questions returns the generated questions, if any.
func (e *Engine) Questions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.questions))
	copy(out, e.questions)
	return out
}

// ContentChanged resets the machine when the associated content changes
// meaningfully: a new page or a content reset rearms generation, no content
// at all disarms it. Previously generated questions are discarded.
func (e *Engine) ContentChanged(hasContent bool) {
	e.mu.Lock()
	prev := e.status
	if hasContent {
		e.status = StatusCanGenerate
	} else {
		e.status = StatusNone
	}
	e.questions = nil
	status := e.status
	changed := prev != status
	e.mu.Unlock()

	if changed {
		e.emit(status, nil)
	}
}

// Generate starts asynchronous question generation. Valid only from
// CanGenerate; the result is delivered via notify, not returned.
func (e *Engine) Generate(ctx context.Context, pageContent string) error {
	if e.source == nil {
		return ErrNotReady
	}
	e.mu.Lock()
	if e.status != StatusCanGenerate {
		status := e.status
		e.mu.Unlock()
		e.logger.Debug("generation rejected", "status", status.String())
		return ErrNotReady
	}
	e.status = StatusIsGenerating
	e.mu.Unlock()

	e.emit(StatusIsGenerating, nil)

	go e.run(ctx, pageContent)
	return nil
}

func (e *Engine) run(ctx context.Context, pageContent string) {
	questions, err := e.source.SuggestQuestions(ctx, pageContent)

	e.mu.Lock()
	// A content change while generating rearms or disarms the machine;
	// a stale result must not override it.
	if e.status != StatusIsGenerating {
		e.mu.Unlock()
		e.logger.Debug("dropping stale suggestion result")
		return
	}
	if err != nil {
		e.status = StatusCanGenerate
		e.questions = nil
	} else {
		e.status = StatusHasGenerated
		e.questions = questions
	}
	status := e.status
	snapshot := make([]string, len(e.questions))
	copy(snapshot, e.questions)
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("question generation failed", "error", err)
	} else {
		e.logger.Debug("questions generated", "count", len(snapshot))
	}
	e.emit(status, snapshot)
}

func (e *Engine) emit(status Status, questions []string) {
	if e.notify != nil {
		e.notify(status, questions)
	}
}
