// Package store provides SQLite-backed persistence for conversations and
// turns.
//
// Conversations are rows of list-level metadata; turns carry role, text,
// visibility, and the edit revision history serialized as JSON. Saving a
// turn is an upsert keyed by turn ID and bumps the conversation's activity
// timestamp, which drives most-recent-first listing. Deleting a conversation
// cascades to its turns.
package store
