// Package fsm defines the session stage machine: capture, recognition,
// submission, and back to idle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateRecording  State = "recording"
	StateListening  State = "listening"
	StateSubmitting State = "submitting"
	StateError      State = "error"
)

const (
	EventCapture     Event = "capture"
	EventRecord      Event = "record"
	EventCaptured    Event = "captured"
	EventListen      Event = "listen"
	EventTranscribed Event = "transcribed"
	EventCommand     Event = "command"
	EventResponded   Event = "responded"
	EventCancel      Event = "cancel"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventCapture:
			return StateCapturing, nil
		case EventRecord:
			return StateRecording, nil
		case EventListen:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCapturing, StateRecording:
		switch event {
		case EventCaptured:
			return StateListening, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventTranscribed:
			return StateSubmitting, nil
		case EventCommand, EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSubmitting:
		switch event {
		case EventResponded:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a stage of an interaction is in flight.
func (s State) Busy() bool {
	return s != StateIdle && s != StateError
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
