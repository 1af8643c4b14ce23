// Package engine defines the response engine contract and its event stream.
//
// An Engine accepts one request (model key, prior turns, optional page
// content) and returns a channel of events. The stream always ends with a
// terminal Done or Error event; text arrives as incremental chunks in order.
//
// OpenAIEngine is the production implementation, speaking the OpenAI
// chat-completions streaming protocol against hosted or custom endpoints.
// Transport and protocol failures map onto the small ErrorKind set
// (connection issue, rate limit, context limit) that drives session error
// handling and retry eligibility.
package engine
