// ABOUTME: Streaming event and error-kind types produced by remote assistant engines
// ABOUTME: Each Event carries exactly one populated variant, selected by Kind

package engine

// EventKind selects which variant of an Event is populated.
type EventKind int

const (
	// EventText carries an incremental completion fragment.
	EventText EventKind = iota
	// EventPageRefined signals the page content is being refined for the request.
	EventPageRefined
	// EventSearchQueries carries generated search queries.
	EventSearchQueries
	// EventSearchInProgress signals a remote search is underway.
	EventSearchInProgress
	// EventDone terminates a successful stream.
	EventDone
	// EventError terminates a failed stream; ErrKind is set.
	EventError
)

// ErrorKind classifies engine failures for the session error state.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	// ErrorConnectionIssue is a transport or network failure. Retryable.
	ErrorConnectionIssue
	// ErrorRateLimit is engine-side throttling. Retryable after backoff.
	ErrorRateLimit
	// ErrorContextLimit means the conversation or page content exceeded the
	// engine's window. Not retryable without trimming input.
	ErrorContextLimit
)

// String returns the kind name used in logs and API responses.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorConnectionIssue:
		return "connection_issue"
	case ErrorRateLimit:
		return "rate_limit_reached"
	case ErrorContextLimit:
		return "context_limit_reached"
	default:
		return "unknown"
	}
}

// Retryable reports whether a retry without input changes can succeed.
func (k ErrorKind) Retryable() bool {
	return k == ErrorConnectionIssue || k == ErrorRateLimit
}

// Event is one unit of streamed engine output. Exactly one variant is
// populated per instance; consumers must switch on Kind and must not assume a
// fixed event count per turn.
type Event struct {
	Kind          EventKind
	Text          string    // EventText
	Refined       bool      // EventPageRefined
	SearchQueries []string  // EventSearchQueries
	Searching     bool      // EventSearchInProgress
	ErrKind       ErrorKind // EventError
}

// TextEvent builds an incremental completion event.
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// PageRefinedEvent builds a content-refinement flag event.
func PageRefinedEvent(refined bool) Event {
	return Event{Kind: EventPageRefined, Refined: refined}
}

// SearchQueriesEvent builds a generated-queries event.
func SearchQueriesEvent(queries []string) Event {
	return Event{Kind: EventSearchQueries, SearchQueries: queries}
}

// SearchInProgressEvent builds a search-status event.
func SearchInProgressEvent(searching bool) Event {
	return Event{Kind: EventSearchInProgress, Searching: searching}
}

// DoneEvent terminates a successful stream.
func DoneEvent() Event {
	return Event{Kind: EventDone}
}

// ErrorEvent terminates a failed stream with the given kind.
func ErrorEvent(kind ErrorKind) Event {
	return Event{Kind: EventError, ErrKind: kind}
}

// Terminal reports whether no further events follow on the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
