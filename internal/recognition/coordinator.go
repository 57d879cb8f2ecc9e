package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/vcinteract/internal/logging"
)

// State tracks one coordinator's listening lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateResult    State = "result"
	StateNoMatch   State = "no_match"
	StateError     State = "error"
)

// Observer receives recognition outcome counts.
type Observer interface {
	Recognition(path, kind string)
}

// Options configures a Coordinator.
type Options struct {
	Primary  Params
	Fallback Params
	OnReady  func(Path)
	Observer Observer
}

// Coordinator runs one listening session at a time on the primary engine,
// falling back to the secondary engine when the primary cannot start.
type Coordinator struct {
	logger   *slog.Logger
	primary  Engine
	fallback Engine
	opts     Options

	mu    sync.Mutex
	state State
}

// ErrListening is returned when Listen is called while a session is active.
var ErrListening = errors.New("recognition already in progress")

// NewCoordinator builds a coordinator. Either engine may be nil.
func NewCoordinator(logger *slog.Logger, primary, fallback Engine, opts Options) *Coordinator {
	if opts.Primary.MaxAlternatives == 0 {
		opts.Primary = PrimaryParams
	}
	if opts.Fallback.MaxAlternatives == 0 {
		opts.Fallback = FallbackParams
	}
	return &Coordinator{
		logger:   logging.OrDiscard(logger),
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Listen runs one session and returns exactly one outcome.
func (c *Coordinator) Listen(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state == StateListening {
		c.mu.Unlock()
		return Outcome{}, ErrListening
	}
	c.state = StateListening
	c.mu.Unlock()

	outcome := c.listen(ctx)
	c.settle(outcome)
	c.observe(outcome)
	return outcome, nil
}

func (c *Coordinator) listen(ctx context.Context) Outcome {
	if c.primary != nil && c.primary.Available() {
		events, err := c.primary.Listen(ctx, c.opts.Primary)
		if err == nil {
			return c.await(ctx, PathPrimary, events)
		}
		c.logger.Warn("primary recognizer failed to start; using fallback", "error", err.Error())
	}

	if c.fallback == nil || !c.fallback.Available() {
		return Outcome{Kind: OutcomeError, Code: CodeEngineUnavailable, Path: PathFallback}
	}
	events, err := c.fallback.Listen(ctx, c.opts.Fallback)
	if err != nil {
		c.logger.Error("fallback recognizer failed to start", "error", err.Error())
		return Outcome{Kind: OutcomeError, Code: CodeClient, Path: PathFallback, Err: err}
	}
	return c.await(ctx, PathFallback, events)
}

func (c *Coordinator) await(ctx context.Context, path Path, events <-chan Event) Outcome {
	defer func() {
		go drain(events)
	}()

	for {
		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeError, Code: CodeSpeechTimeout, Path: path, Err: ctx.Err()}
		case ev, ok := <-events:
			if !ok {
				return Outcome{Kind: OutcomeError, Code: CodeClient, Path: path, Err: errors.New("recognizer closed without a result")}
			}
			if ev.Terminal() {
				return toOutcome(path, ev)
			}
			if ev.Kind != EventReady {
				c.logger.Debug("ignoring recognizer event", "path", string(path), "kind", int(ev.Kind))
				continue
			}
			c.logger.Debug("recognizer ready", "path", string(path))
			if c.opts.OnReady != nil {
				c.opts.OnReady(path)
			}
		}
	}
}

func toOutcome(path Path, ev Event) Outcome {
	switch ev.Kind {
	case EventResult:
		alternatives := make([]string, 0, len(ev.Alternatives))
		for _, alt := range ev.Alternatives {
			if trimmed := strings.TrimSpace(alt); trimmed != "" {
				alternatives = append(alternatives, trimmed)
			}
		}
		if len(alternatives) == 0 {
			return Outcome{Kind: OutcomeNoMatch, Code: CodeNoMatch, Path: path}
		}
		return Outcome{Kind: OutcomeTranscript, Text: alternatives[0], Alternatives: alternatives, Path: path}
	case EventNoMatch:
		return Outcome{Kind: OutcomeNoMatch, Code: CodeNoMatch, Path: path}
	default:
		code := ev.Code
		if code == "" {
			code = CodeUnknown
		}
		if code == CodeNoMatch {
			return Outcome{Kind: OutcomeNoMatch, Code: CodeNoMatch, Path: path, Err: ev.Err}
		}
		return Outcome{Kind: OutcomeError, Code: code, Path: path, Err: ev.Err}
	}
}

func (c *Coordinator) settle(outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch outcome.Kind {
	case OutcomeTranscript:
		c.state = StateResult
	case OutcomeNoMatch:
		c.state = StateNoMatch
	default:
		c.state = StateError
	}
	c.logger.Debug("recognition settled", "state", string(c.state), "path", string(outcome.Path))
	c.state = StateIdle
}

func (c *Coordinator) observe(outcome Outcome) {
	if c.opts.Observer == nil {
		return
	}
	c.opts.Observer.Recognition(string(outcome.Path), string(outcome.Kind))
}

func drain(events <-chan Event) {
	for range events {
	}
}
