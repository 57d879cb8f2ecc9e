// Package session orchestrates one interaction at a time: optional capture,
// speech recognition, submission, and spoken playback.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/rbright/vcinteract/internal/capture"
	"github.com/rbright/vcinteract/internal/fsm"
	"github.com/rbright/vcinteract/internal/ipc"
	"github.com/rbright/vcinteract/internal/lifecycle"
	"github.com/rbright/vcinteract/internal/logging"
	"github.com/rbright/vcinteract/internal/recognition"
	"github.com/rbright/vcinteract/internal/submission"
)

// Capturer takes photos and records videos into the artifact store.
type Capturer interface {
	CapturePhoto(ctx context.Context) (*artifact.Artifact, error)
	CaptureVideo(ctx context.Context, onStarted func()) (*artifact.Artifact, error)
	StopVideo() bool
}

// Recognizer yields one recognition outcome per call.
type Recognizer interface {
	Listen(ctx context.Context) (recognition.Outcome, error)
}

// Submitter posts one request to the server.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request, requestID string) (submission.Result, error)
}

// Speaker queues response text for playback.
type Speaker interface {
	Speak(ctx context.Context, text string) int
}

// Artifacts is the read side of the artifact store.
type Artifacts interface {
	Current() (*artifact.Artifact, bool)
	Kind() artifact.Kind
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowRecorded(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context) {}
func (noopIndicator) ShowRecorded(context.Context)  {}

// Session is a snapshot of the single live session.
type Session struct {
	ID               string
	State            fsm.State
	ControlsEnabled  bool
	PendingRequestID string
	Artifact         artifact.Kind
}

// Deps wires an Orchestrator.
type Deps struct {
	Logger     *slog.Logger
	Capture    Capturer
	Recognizer Recognizer
	Submitter  Submitter
	Speaker    Speaker
	Artifacts  Artifacts
	Indicator  Indicator
	Manager    *lifecycle.Manager
	Control    *lifecycle.Control
	// CapturePool runs capture stages; LogicPool runs recognition and
	// submission. Either may be nil, in which case stages run on a new
	// goroutine.
	CapturePool *lifecycle.Pool
	LogicPool   *lifecycle.Pool
}

// Orchestrator owns the session record and drives each interaction.
type Orchestrator struct {
	logger      *slog.Logger
	capture     Capturer
	recognizer  Recognizer
	submitter   Submitter
	speaker     Speaker
	artifacts   Artifacts
	indicator   Indicator
	manager     *lifecycle.Manager
	control     *lifecycle.Control
	capturePool *lifecycle.Pool
	logicPool   *lifecycle.Pool

	mu      sync.Mutex
	id      string
	state   fsm.State
	pending string
}

// ErrBusy rejects commands while an interaction is in progress.
var ErrBusy = errors.New("interaction in progress")

func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		logger:      logging.OrDiscard(deps.Logger),
		capture:     deps.Capture,
		recognizer:  deps.Recognizer,
		submitter:   deps.Submitter,
		speaker:     deps.Speaker,
		artifacts:   deps.Artifacts,
		indicator:   deps.Indicator,
		manager:     deps.Manager,
		control:     deps.Control,
		capturePool: deps.CapturePool,
		logicPool:   deps.LogicPool,
		id:          uuid.NewString(),
		state:       fsm.StateIdle,
	}
	if o.indicator == nil {
		o.indicator = noopIndicator{}
	}
	if o.control == nil {
		o.control = lifecycle.NewControl(nil)
	}
	if o.manager == nil {
		o.manager = lifecycle.NewManager(lifecycle.Deps{Logger: deps.Logger, Control: o.control})
	}
	return o
}

// State returns the current FSM state.
func (o *Orchestrator) State() fsm.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the live session record.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	s := Session{ID: o.id, State: o.state, PendingRequestID: o.pending}
	o.mu.Unlock()
	s.ControlsEnabled = o.control.Enabled()
	if o.artifacts != nil {
		s.Artifact = o.artifacts.Kind()
	}
	return s
}

// Handle serves IPC commands.
func (o *Orchestrator) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return o.statusResponse("status")
	case ipc.CommandPhoto:
		if err := o.StartPhoto(); err != nil {
			return o.errorResponse(err)
		}
		return o.statusResponse("photo capture started")
	case ipc.CommandRecord:
		if o.State() == fsm.StateRecording {
			if o.capture != nil && o.capture.StopVideo() {
				return o.statusResponse("recording stop requested")
			}
			return o.statusResponse("recording already stopping")
		}
		if err := o.StartVideo(); err != nil {
			return o.errorResponse(err)
		}
		return o.statusResponse("recording started")
	case ipc.CommandListen:
		if err := o.StartListen(); err != nil {
			return o.errorResponse(err)
		}
		return o.statusResponse("listening")
	default:
		return ipc.Response{OK: false, State: string(o.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// StartPhoto begins a capture-then-listen interaction.
func (o *Orchestrator) StartPhoto() error {
	if err := o.admit(); err != nil {
		return err
	}
	return o.begin("photo", fsm.EventCapture, o.capturePool, o.runPhoto)
}

// StartVideo begins a record-then-listen interaction.
func (o *Orchestrator) StartVideo() error {
	if err := o.admit(); err != nil {
		return err
	}
	return o.begin("video", fsm.EventRecord, o.capturePool, o.runVideo)
}

// StartListen begins a listen-only interaction.
func (o *Orchestrator) StartListen() error {
	if err := o.admit(); err != nil {
		return err
	}
	return o.begin("listen", fsm.EventListen, o.logicPool, o.runListen)
}

func (o *Orchestrator) admit() error {
	if !o.control.Enabled() {
		return ErrBusy
	}
	return nil
}

func (o *Orchestrator) begin(kind string, event fsm.Event, pool *lifecycle.Pool, stage func(context.Context, *lifecycle.Interaction)) error {
	if err := o.transition(event); err != nil {
		return fmt.Errorf("%w: %s", ErrBusy, o.State())
	}
	it := o.manager.Begin(kind)
	o.logger.Info("interaction accepted", "interaction_id", it.ID, "kind", kind)
	o.dispatch(pool, it, stage)
	return nil
}

func (o *Orchestrator) dispatch(pool *lifecycle.Pool, it *lifecycle.Interaction, stage func(context.Context, *lifecycle.Interaction)) {
	task := func(ctx context.Context) { stage(ctx, it) }
	if pool != nil {
		err := pool.Submit(task)
		if err == nil {
			return
		}
		o.logger.Warn("worker pool rejected stage; running on its own goroutine", "interaction_id", it.ID, "error", err.Error())
	}
	go task(context.Background())
}

func (o *Orchestrator) transition(event fsm.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := fsm.Transition(o.state, event)
	if err != nil {
		return err
	}
	o.state = next
	return nil
}

func (o *Orchestrator) setPending(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = id
}

// reset returns the session to idle with a fresh ID after a terminal outcome.
func (o *Orchestrator) reset(event fsm.Event) {
	if event == fsm.EventFail {
		_ = o.transition(fsm.EventFail)
		_ = o.transition(fsm.EventReset)
	} else if err := o.transition(event); err != nil {
		o.logger.Error("unexpected session transition", "event", string(event), "state", string(o.State()), "error", err.Error())
		_ = o.transition(fsm.EventFail)
		_ = o.transition(fsm.EventReset)
	}

	o.mu.Lock()
	o.id = uuid.NewString()
	o.pending = ""
	o.mu.Unlock()
}

func (o *Orchestrator) statusResponse(message string) ipc.Response {
	s := o.Snapshot()
	return ipc.Response{
		OK:       true,
		State:    string(s.State),
		Message:  message,
		Session:  s.ID,
		Artifact: string(s.Artifact),
		Controls: s.ControlsEnabled,
		Pending:  s.PendingRequestID,
	}
}

func (o *Orchestrator) errorResponse(err error) ipc.Response {
	resp := o.statusResponse("")
	resp.OK = false
	resp.Error = err.Error()
	return resp
}

// errCaptureUnavailable is surfaced when no capture device is wired.
var errCaptureUnavailable = &capture.Error{Kind: capture.NotInitialized, Op: "capture", Err: errors.New("no capture device configured")}
