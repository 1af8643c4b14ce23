// ABOUTME: QuestionSource backed by the assistant engine itself
// ABOUTME: Asks the model for short follow-up questions and splits the streamed answer into lines

package suggest

import (
	"context"
	"errors"
	"strings"

	"github.com/2389/coven-assist/internal/engine"
)

// ErrNoQuestions is returned when the engine produced no usable questions.
var ErrNoQuestions = errors.New("engine produced no questions")

const questionPrompt = "List three short questions a reader might ask next about this page. " +
	"Reply with one question per line and nothing else."

// EngineSource generates follow-up questions through an assistant engine.
type EngineSource struct {
	eng      engine.Engine
	modelKey string
}

// NewEngineSource creates a source that queries the given model.
func NewEngineSource(eng engine.Engine, modelKey string) *EngineSource {
	return &EngineSource{eng: eng, modelKey: modelKey}
}

// SuggestQuestions implements QuestionSource.
func (s *EngineSource) SuggestQuestions(ctx context.Context, pageContent string) ([]string, error) {
	events, err := s.eng.Send(ctx, &engine.Request{
		ModelKey:    s.modelKey,
		PageContent: pageContent,
		Messages:    []engine.Message{{Role: engine.RoleHuman, Text: questionPrompt}},
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for ev := range events {
		switch ev.Kind {
		case engine.EventText:
			sb.WriteString(ev.Text)
		case engine.EventError:
			return nil, errors.New("question generation failed: " + ev.ErrKind.String())
		}
	}

	questions := splitQuestions(sb.String())
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// splitQuestions cleans the model output into a question list. Models often
// number their answers despite instructions, so leading markers are trimmed.
func splitQuestions(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
