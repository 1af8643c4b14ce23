// Package session owns the per-conversation state machine.
//
// # Overview
//
// A Session holds everything mutable about one conversation: the ordered
// turns, the three-state lifecycle (Idle, AwaitingResponse, Error), the
// active model selection, and the content and suggestion trackers. All
// mutating operations serialize on one mutex; each response cycle runs in
// its own goroutine and folds engine events back in under the same lock.
//
// # Response Cycle
//
// Submitting an entry appends a frozen human turn and a streaming assistant
// placeholder, then dispatches the visible history to the engine:
//
//	s.Submit(session.SubmitRequest{Text: "What is this page about?"})
//
// Events accumulate on the placeholder until a terminal Done or Error event
// freezes it. A closed stream without a terminal event is treated as a
// connection issue.
//
// # Cancellation
//
// Every cycle carries a generation number taken under the lock. Submitting
// while a cycle is in flight cancels its context, hides its partial
// assistant turn, and bumps the generation; events from the superseded
// generation are dropped on arrival. Cancellation always wins the race
// against late completion.
//
// # Errors and Retry
//
// A terminal error freezes the partial turn and parks the session in the
// Error state. Retry (retryable errors only) hides the failed assistant turn
// and resubmits the last human entry byte-for-byte, so the visible history
// length never changes across a retry. ClearErrorAndGetFailedMessage instead
// returns the failed entry, for clients that put the text back in the
// composer.
//
// # Persistence
//
// Turns persist through the TurnStore on append and on freeze, with a
// detached timeout context so a slow store cannot stall the stream. Error
// state and the in-flight flag are never persisted: a restart always
// restores to Idle with every turn frozen.
package session
