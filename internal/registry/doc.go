// Package registry tracks conversations and the live sessions bound to them.
//
// # Overview
//
// The registry is the process-wide index of conversations. Listing reads
// metadata straight from the store without allocating sessions; Bind and
// NewConversation return the one live session per conversation ID, creating
// it on first use.
//
//	s, err := reg.Bind(ctx, conversationID)
//
// Delete tears the session down and removes durable history; Release tears
// the session down but keeps history, so a later Bind restores it.
//
// # Premium Cache
//
// Entitlement checks are network-bound, so the registry caches the last
// PremiumChecker result and refreshes in the background on a throttle.
// Reads never block on the network; a failed refresh keeps the previous
// snapshot. State transitions broadcast a model-data-changed notification.
//
// # App-level State
//
// The registry also carries small cross-conversation flags: the one-way
// agreement-accepted mark, premium prompt visibility, and the default
// conversation selection. Changes broadcast on the global hub scope.
package registry
