package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rbright/vcinteract/internal/command"
	"github.com/rbright/vcinteract/internal/logging"
)

// QueueMode controls how Speak interacts with pending utterances.
type QueueMode int

const (
	// QueueAdd appends after pending utterances.
	QueueAdd QueueMode = iota
	// QueueFlush drops pending utterances and interrupts the current one.
	QueueFlush
)

// EventKind tags synthesizer progress.
type EventKind string

const (
	EventStart EventKind = "start"
	EventDone  EventKind = "done"
	EventError EventKind = "error"
)

// Event reports progress for one utterance.
type Event struct {
	Kind        EventKind
	UtteranceID string
	Err         error
}

// Synth is a text-to-speech engine.
type Synth interface {
	Ready() bool
	Speak(text, utteranceID string, mode QueueMode) error
	Events() <-chan Event
	Close() error
}

var ErrSynthClosed = errors.New("speech synthesizer closed")

type utterance struct {
	id   string
	text string
}

// CommandSynth speaks each utterance by piping its text into a command
// (espeak-ng --stdin by default). Utterances play strictly in queue order and
// the pending queue is unbounded, so Speak never drops text.
type CommandSynth struct {
	logger *slog.Logger
	argv   []string

	wake   chan struct{}
	events chan Event

	mu      sync.Mutex
	pending fifo[utterance]
	closed  bool
	current context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSynth starts the playback worker. eventDepth sizes the Events buffer.
func NewCommandSynth(logger *slog.Logger, argv []string, eventDepth int) *CommandSynth {
	if eventDepth <= 0 {
		eventDepth = 128
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &CommandSynth{
		logger: logging.OrDiscard(logger),
		argv:   append([]string(nil), argv...),
		wake:   make(chan struct{}, 1),
		events: make(chan Event, eventDepth),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *CommandSynth) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.argv) == 0 {
		return false
	}
	_, err := command.Available(s.argv)
	return err == nil
}

func (s *CommandSynth) Speak(text, utteranceID string, mode QueueMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSynthClosed
	}

	if mode == QueueFlush {
		s.pending.Reset()
		if s.current != nil {
			s.current()
		}
	}

	s.pending.Enqueue(utterance{id: utteranceID, text: text})
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *CommandSynth) Events() <-chan Event {
	return s.events
}

// Close stops playback, drops pending utterances, and closes Events.
func (s *CommandSynth) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending.Reset()
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// next blocks until an utterance is pending or the synth closes.
func (s *CommandSynth) next() (utterance, context.Context, context.CancelFunc, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return utterance{}, nil, nil, false
		}
		if u, ok := s.pending.Dequeue(); ok {
			ctx, cancel := context.WithCancel(s.ctx)
			s.current = cancel
			s.mu.Unlock()
			return u, ctx, cancel, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return utterance{}, nil, nil, false
		}
	}
}

// Pending reports utterances waiting behind the current one.
func (s *CommandSynth) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

func (s *CommandSynth) run() {
	defer close(s.done)
	defer close(s.events)

	for {
		u, ctx, cancel, ok := s.next()
		if !ok {
			return
		}

		s.emit(Event{Kind: EventStart, UtteranceID: u.id})
		_, err := command.Run(ctx, s.argv, u.text)
		if err != nil {
			s.emit(Event{Kind: EventError, UtteranceID: u.id, Err: err})
		} else {
			s.emit(Event{Kind: EventDone, UtteranceID: u.id})
		}

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		cancel()
	}
}

func (s *CommandSynth) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("speech event dropped", "utterance_id", ev.UtteranceID, "event", string(ev.Kind))
	}
}
