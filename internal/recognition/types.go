package recognition

import (
	"context"
	"time"
)

// Path names which engine produced an outcome.
type Path string

const (
	PathPrimary  Path = "primary"
	PathFallback Path = "fallback"
)

// Params bounds one listening session.
type Params struct {
	MinInput        time.Duration
	Silence         time.Duration
	MaxAlternatives int
	Continuous      bool
}

// PrimaryParams and FallbackParams are the default listening windows.
var (
	PrimaryParams  = Params{MinInput: 7 * time.Second, Silence: 7 * time.Second, MaxAlternatives: 5, Continuous: true}
	FallbackParams = Params{MinInput: 10 * time.Second, Silence: 7 * time.Second, MaxAlternatives: 1}
)

// EventKind tags engine events. Ready is informational; Result, NoMatch and
// Error are terminal.
type EventKind int

const (
	EventReady EventKind = iota + 1
	EventResult
	EventNoMatch
	EventError
)

// Event is one engine callback.
type Event struct {
	Kind         EventKind
	Alternatives []string
	Code         Code
	Err          error
}

// Terminal reports whether the event ends a listening session.
func (e Event) Terminal() bool {
	return e.Kind == EventResult || e.Kind == EventNoMatch || e.Kind == EventError
}

// Engine is a speech-to-text backend.
type Engine interface {
	Available() bool
	// Listen starts one session. The returned channel yields an optional
	// Ready followed by a terminal event and is then closed. An error means
	// the session could not be started at all.
	Listen(ctx context.Context, params Params) (<-chan Event, error)
}

// OutcomeKind classifies a recognition outcome.
type OutcomeKind string

const (
	OutcomeTranscript OutcomeKind = "transcript"
	OutcomeNoMatch    OutcomeKind = "no_match"
	OutcomeError      OutcomeKind = "error"
)

// Outcome is the single result of one Listen call.
type Outcome struct {
	Kind         OutcomeKind
	Text         string
	Alternatives []string
	Code         Code
	Path         Path
	Err          error
}

// Message is the user-facing summary for non-transcript outcomes.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeNoMatch:
		return "No speech detected"
	case OutcomeError:
		return "Speech recognition error: " + o.Code.Message()
	default:
		return o.Text
	}
}
