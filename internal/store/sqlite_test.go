// ABOUTME: Tests for the SQLite conversation store
// ABOUTME: Verifies CRUD, ordering, duplicate detection, and edit revision round-trips

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		Title:     "Test conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStore_CreateAndGetConversation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testConversation(uuid.New().String())
	require.NoError(t, s.CreateConversation(ctx, c))

	got, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Test conversation", got.Title)
	assert.False(t, got.Hidden)
}

func TestSQLiteStore_DuplicateConversation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testConversation("conv-1")
	require.NoError(t, s.CreateConversation(ctx, c))
	assert.ErrorIs(t, s.CreateConversation(ctx, c), ErrDuplicateConversation)
}

func TestSQLiteStore_GetConversationNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListConversationsOrderedByActivity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	older := testConversation("older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	older.UpdatedAt = older.CreatedAt
	require.NoError(t, s.CreateConversation(ctx, older))

	newer := testConversation("newer")
	require.NoError(t, s.CreateConversation(ctx, newer))

	list, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, "older", list[1].ID)

	// Saving a turn bumps the conversation to the top
	require.NoError(t, s.SaveTurn(ctx, &TurnRecord{
		ID:             uuid.New().String(),
		ConversationID: "older",
		Seq:            0,
		Role:           RoleHuman,
		Text:           "hello",
		CreatedAt:      time.Now(),
	}))

	list, err = s.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "older", list[0].ID)
}

func TestSQLiteStore_UpdateConversation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testConversation("conv-1")
	require.NoError(t, s.CreateConversation(ctx, c))

	c.Title = "Renamed"
	c.HasContent = true
	c.Hidden = true
	require.NoError(t, s.UpdateConversation(ctx, c))

	got, err := s.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.HasContent)
	assert.True(t, got.Hidden)

	missing := testConversation("missing")
	assert.ErrorIs(t, s.UpdateConversation(ctx, missing), ErrNotFound)
}

func TestSQLiteStore_TurnRoundTripWithEdits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1")))

	created := time.Now().Truncate(time.Second)
	turn := &TurnRecord{
		ID:             uuid.New().String(),
		ConversationID: "conv-1",
		Seq:            0,
		Role:           RoleHuman,
		ActionTag:      "summarize_page",
		Text:           "Summarize this page",
		SelectedText:   "some highlighted text",
		Edits: []Revision{
			{Text: "Summarize this article", CreatedAt: created},
		},
		CreatedAt: created,
	}
	require.NoError(t, s.SaveTurn(ctx, turn))

	turns, err := s.GetTurns(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)

	got := turns[0]
	assert.Equal(t, "Summarize this page", got.Text)
	assert.Equal(t, "summarize_page", got.ActionTag)
	assert.Equal(t, "some highlighted text", got.SelectedText)
	require.Len(t, got.Edits, 1)
	assert.Equal(t, "Summarize this article", got.Edits[0].Text)
}

func TestSQLiteStore_TurnsOrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1")))

	for i, role := range []string{RoleHuman, RoleAssistant, RoleHuman} {
		require.NoError(t, s.SaveTurn(ctx, &TurnRecord{
			ID:             uuid.New().String(),
			ConversationID: "conv-1",
			Seq:            i,
			Role:           role,
			Text:           "turn",
			CreatedAt:      time.Now(),
		}))
	}

	turns, err := s.GetTurns(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	for i, turn := range turns {
		assert.Equal(t, i, turn.Seq)
	}
}

func TestSQLiteStore_SaveTurnReplacesExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1")))

	turn := &TurnRecord{
		ID:             "turn-1",
		ConversationID: "conv-1",
		Seq:            0,
		Role:           RoleAssistant,
		Text:           "partial",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.SaveTurn(ctx, turn))

	turn.Text = "partial plus the rest"
	turn.Hidden = true
	require.NoError(t, s.SaveTurn(ctx, turn))

	turns, err := s.GetTurns(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "partial plus the rest", turns[0].Text)
	assert.True(t, turns[0].Hidden)
}

func TestSQLiteStore_DeleteConversationCascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1")))
	require.NoError(t, s.SaveTurn(ctx, &TurnRecord{
		ID:             "turn-1",
		ConversationID: "conv-1",
		Role:           RoleHuman,
		Text:           "hello",
		CreatedAt:      time.Now(),
	}))

	require.NoError(t, s.DeleteConversation(ctx, "conv-1"))

	_, err := s.GetConversation(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrNotFound)

	turns, err := s.GetTurns(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	assert.ErrorIs(t, s.DeleteConversation(ctx, "conv-1"), ErrNotFound)
}
