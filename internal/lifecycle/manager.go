package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/rbright/vcinteract/internal/logging"
)

// Severity selects how a notice is presented.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is the single user-facing message that ends an interaction.
type Notice struct {
	Severity Severity
	Text     string
}

// Outcome describes how an interaction ended.
type Outcome struct {
	// Result is a short label such as "success", "server_error", or "no_match".
	Result string
	Notice Notice
}

// Notifier shows user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// Releaser deletes an artifact's backing file.
type Releaser interface {
	Release(a *artifact.Artifact)
}

// Observer counts finished interactions.
type Observer interface {
	Interaction(outcome string)
}

// Interaction is one user-initiated round trip.
type Interaction struct {
	ID      string
	Kind    string
	Started time.Time

	mu       sync.Mutex
	artifact *artifact.Artifact
	finished atomic.Bool
}

// Track records the temp file owned by the interaction. The latest tracked
// artifact is the one released on Finish.
func (it *Interaction) Track(a *artifact.Artifact) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.artifact = a
}

// Tracked returns the artifact owned by the interaction, if any.
func (it *Interaction) Tracked() *artifact.Artifact {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.artifact
}

// Finished reports whether Finish already ran.
func (it *Interaction) Finished() bool {
	return it.finished.Load()
}

// Deps wires a Manager.
type Deps struct {
	Logger   *slog.Logger
	Loop     *Loop
	Control  *Control
	Files    *Pool
	Releaser Releaser
	Notifier Notifier
	Observer Observer
}

// Manager guarantees that every interaction re-enables the control, deletes
// its temp file, and notifies the user exactly once.
type Manager struct {
	logger   *slog.Logger
	loop     *Loop
	control  *Control
	files    *Pool
	releaser Releaser
	notifier Notifier
	observer Observer
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		logger:   logging.OrDiscard(deps.Logger),
		loop:     deps.Loop,
		control:  deps.Control,
		files:    deps.Files,
		releaser: deps.Releaser,
		notifier: deps.Notifier,
		observer: deps.Observer,
	}
}

// Begin starts an interaction and disables the control.
func (m *Manager) Begin(kind string) *Interaction {
	it := &Interaction{ID: uuid.NewString(), Kind: kind, Started: time.Now()}
	m.onLoop(m.disable)
	m.logger.Debug("interaction started", "interaction_id", it.ID, "kind", kind)
	return it
}

// Finish runs the terminal cleanup for it. Only the first call has any
// effect; later calls return false.
func (m *Manager) Finish(ctx context.Context, it *Interaction, outcome Outcome) bool {
	if it == nil || !it.finished.CompareAndSwap(false, true) {
		return false
	}

	m.onLoop(m.enable)

	if tracked := it.Tracked(); tracked != nil && m.releaser != nil {
		release := func(context.Context) { m.releaser.Release(tracked) }
		if m.files == nil {
			release(ctx)
		} else if err := m.files.Submit(release); err != nil {
			m.logger.Warn("file pool unavailable; releasing inline", "interaction_id", it.ID, "error", err.Error())
			release(ctx)
		}
	}

	if m.notifier != nil && outcome.Notice.Text != "" {
		m.notifier.Notify(ctx, outcome.Notice)
	}
	if m.observer != nil {
		m.observer.Interaction(outcome.Result)
	}

	m.logger.Info("interaction finished",
		"interaction_id", it.ID,
		"kind", it.Kind,
		"outcome", outcome.Result,
		"duration_ms", time.Since(it.Started).Milliseconds(),
	)
	return true
}

func (m *Manager) enable() {
	if m.control != nil {
		m.control.Enable()
	}
}

func (m *Manager) disable() {
	if m.control != nil {
		m.control.Disable()
	}
}

func (m *Manager) onLoop(fn func()) {
	if m.loop == nil || !m.loop.Post(fn) {
		fn()
	}
}
