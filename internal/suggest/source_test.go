// ABOUTME: Tests for the engine-backed question source
// ABOUTME: Verifies streamed output is assembled and cleaned into a question list

package suggest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-assist/internal/engine"
)

// scriptedEngine replays a fixed event sequence for every Send
type scriptedEngine struct {
	events  []engine.Event
	lastReq *engine.Request
}

func (s *scriptedEngine) Send(ctx context.Context, req *engine.Request) (<-chan engine.Event, error) {
	s.lastReq = req
	ch := make(chan engine.Event, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func TestEngineSource_AssemblesQuestions(t *testing.T) {
	eng := &scriptedEngine{events: []engine.Event{
		engine.TextEvent("1. What is the main topic?\n"),
		engine.TextEvent("2. Who is the author?\n3. When was it published?"),
		engine.DoneEvent(),
	}}
	src := NewEngineSource(eng, "swift")

	questions, err := src.SuggestQuestions(context.Background(), "page body")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"What is the main topic?",
		"Who is the author?",
		"When was it published?",
	}, questions)

	require.NotNil(t, eng.lastReq)
	assert.Equal(t, "swift", eng.lastReq.ModelKey)
	assert.Equal(t, "page body", eng.lastReq.PageContent)
}

func TestEngineSource_EmptyOutputIsAnError(t *testing.T) {
	eng := &scriptedEngine{events: []engine.Event{engine.DoneEvent()}}
	src := NewEngineSource(eng, "swift")

	_, err := src.SuggestQuestions(context.Background(), "page body")
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestEngineSource_EngineFailurePropagates(t *testing.T) {
	eng := &scriptedEngine{events: []engine.Event{engine.ErrorEvent(engine.ErrorRateLimit)}}
	src := NewEngineSource(eng, "swift")

	_, err := src.SuggestQuestions(context.Background(), "page body")
	assert.Error(t, err)
}
