// ABOUTME: Tests for the suggestion engine status machine
// ABOUTME: Covers arming on content, async generation, failure rearm, and stale results

package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements QuestionSource for testing
type mockSource struct {
	questions []string
	err       error
	block     chan struct{} // if non-nil, Recv blocks until closed
}

func (m *mockSource) SuggestQuestions(ctx context.Context, pageContent string) ([]string, error) {
	if m.block != nil {
		<-m.block
	}
	return m.questions, m.err
}

// recorder collects notify callbacks in order
type recorder struct {
	mu      sync.Mutex
	history []Status
}

func (r *recorder) notify(s Status, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, s)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.history))
	copy(out, r.history)
	return out
}

func TestEngine_StartsAtNone(t *testing.T) {
	e := NewEngine(&mockSource{}, nil, nil)
	assert.Equal(t, StatusNone, e.Status())
	assert.Empty(t, e.Questions())
}

func TestEngine_GenerateRejectedWithoutContent(t *testing.T) {
	e := NewEngine(&mockSource{}, nil, nil)
	err := e.Generate(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestEngine_FullCycle(t *testing.T) {
	rec := &recorder{}
	src := &mockSource{questions: []string{"What are the three topics?", "Who wrote this?"}}
	e := NewEngine(src, rec.notify, nil)

	e.ContentChanged(true)
	require.Equal(t, StatusCanGenerate, e.Status())

	require.NoError(t, e.Generate(context.Background(), "page text"))

	assert.Eventually(t, func() bool {
		return e.Status() == StatusHasGenerated
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"What are the three topics?", "Who wrote this?"}, e.Questions())
	assert.Equal(t, []Status{StatusCanGenerate, StatusIsGenerating, StatusHasGenerated}, rec.statuses())
}

func TestEngine_GenerateRejectedWhileGenerating(t *testing.T) {
	src := &mockSource{block: make(chan struct{})}
	e := NewEngine(src, nil, nil)
	e.ContentChanged(true)

	require.NoError(t, e.Generate(context.Background(), "page"))
	assert.ErrorIs(t, e.Generate(context.Background(), "page"), ErrNotReady)

	close(src.block)
}

func TestEngine_FailureRearmsGeneration(t *testing.T) {
	src := &mockSource{err: errors.New("engine unavailable")}
	e := NewEngine(src, nil, nil)
	e.ContentChanged(true)

	require.NoError(t, e.Generate(context.Background(), "page"))

	assert.Eventually(t, func() bool {
		return e.Status() == StatusCanGenerate
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, e.Questions())
}

func TestEngine_ContentChangeResetsGeneratedQuestions(t *testing.T) {
	src := &mockSource{questions: []string{"Q1"}}
	e := NewEngine(src, nil, nil)
	e.ContentChanged(true)
	require.NoError(t, e.Generate(context.Background(), "page"))
	require.Eventually(t, func() bool {
		return e.Status() == StatusHasGenerated
	}, time.Second, 10*time.Millisecond)

	// New page: rearm and discard old questions
	e.ContentChanged(true)
	assert.Equal(t, StatusCanGenerate, e.Status())
	assert.Empty(t, e.Questions())

	// Page with no usable content: disarm
	e.ContentChanged(false)
	assert.Equal(t, StatusNone, e.Status())
}

func TestEngine_StaleResultDroppedAfterContentChange(t *testing.T) {
	src := &mockSource{questions: []string{"stale"}, block: make(chan struct{})}
	e := NewEngine(src, nil, nil)
	e.ContentChanged(true)
	require.NoError(t, e.Generate(context.Background(), "old page"))

	// Navigation happens while the request is still in flight
	e.ContentChanged(true)
	require.Equal(t, StatusCanGenerate, e.Status())

	close(src.block)

	// The stale result must not flip the machine to HasGenerated
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusCanGenerate, e.Status())
	assert.Empty(t, e.Questions())
}
