// Package hub provides in-memory pub/sub for observer notifications.
//
// Observers subscribe to a conversation ID, or to ScopeGlobal for registry
// events, and receive notifications on a buffered channel. Publishing never
// blocks: a slow observer's notifications are dropped once its buffer fills.
// Subscriptions clean themselves up when their context is cancelled.
package hub
