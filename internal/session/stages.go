package session

import (
	"context"
	"errors"
	"strings"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/rbright/vcinteract/internal/capture"
	"github.com/rbright/vcinteract/internal/fsm"
	"github.com/rbright/vcinteract/internal/lifecycle"
	"github.com/rbright/vcinteract/internal/recognition"
	"github.com/rbright/vcinteract/internal/submission"
)

func (o *Orchestrator) runPhoto(ctx context.Context, it *lifecycle.Interaction) {
	if o.capture == nil {
		o.fail(ctx, it, "capture_error", errCaptureUnavailable.Message())
		return
	}
	a, err := o.capture.CapturePhoto(ctx)
	if err != nil {
		o.failCapture(ctx, it, err)
		return
	}
	it.Track(a)
	o.logger.Info("photo captured", "interaction_id", it.ID, "path", a.LocalPath)
	o.afterCapture(ctx, it)
}

func (o *Orchestrator) runVideo(ctx context.Context, it *lifecycle.Interaction) {
	if o.capture == nil {
		o.fail(ctx, it, "capture_error", errCaptureUnavailable.Message())
		return
	}
	a, err := o.capture.CaptureVideo(ctx, func() { o.indicator.ShowRecording(ctx) })
	if err != nil {
		o.failCapture(ctx, it, err)
		return
	}
	it.Track(a)
	o.indicator.ShowRecorded(ctx)
	o.logger.Info("video captured", "interaction_id", it.ID, "path", a.LocalPath)
	o.afterCapture(ctx, it)
}

// afterCapture chains a successful capture into recognition.
func (o *Orchestrator) afterCapture(ctx context.Context, it *lifecycle.Interaction) {
	if err := o.transition(fsm.EventCaptured); err != nil {
		o.fail(ctx, it, "state_error", err.Error())
		return
	}
	o.dispatch(o.logicPool, it, o.runListen)
}

func (o *Orchestrator) runListen(ctx context.Context, it *lifecycle.Interaction) {
	if o.recognizer == nil {
		o.fail(ctx, it, "recognition_error", recognition.Outcome{Kind: recognition.OutcomeError, Code: recognition.CodeEngineUnavailable}.Message())
		return
	}

	outcome, err := o.recognizer.Listen(ctx)
	if err != nil {
		o.fail(ctx, it, "recognition_error", recognition.Outcome{Kind: recognition.OutcomeError, Code: recognition.CodeBusy}.Message())
		return
	}

	switch outcome.Kind {
	case recognition.OutcomeTranscript:
		o.logger.Info("speech recognized",
			"interaction_id", it.ID,
			"path", string(outcome.Path),
			"alternatives", len(outcome.Alternatives),
		)
		text := outcome.Text
		if outcome.Path == recognition.PathFallback {
			if cmd, ok := recognition.DetectCommand(text); ok {
				o.runCommand(ctx, it, cmd)
				return
			}
			text = strings.ToLower(text)
		}
		o.runSubmit(ctx, it, text)
	case recognition.OutcomeNoMatch:
		o.finish(ctx, it, fsm.EventCancel, lifecycle.Outcome{
			Result: "no_match",
			Notice: lifecycle.Notice{Severity: lifecycle.SeverityError, Text: outcome.Message()},
		})
	default:
		attrs := []any{"interaction_id", it.ID, "code", string(outcome.Code), "path", string(outcome.Path)}
		if outcome.Err != nil {
			attrs = append(attrs, "error", outcome.Err.Error())
		}
		o.logger.Error("speech recognition failed", attrs...)
		o.fail(ctx, it, "recognition_error", outcome.Message())
	}
}

// runCommand ends the listening interaction and starts the capture the
// voice command asked for.
func (o *Orchestrator) runCommand(ctx context.Context, it *lifecycle.Interaction, cmd recognition.Command) {
	o.logger.Info("voice command recognized", "interaction_id", it.ID, "command", string(cmd))
	o.finish(ctx, it, fsm.EventCommand, lifecycle.Outcome{
		Result: "command",
		Notice: lifecycle.Notice{Severity: lifecycle.SeverityInfo, Text: cmd.Notice()},
	})

	var err error
	switch cmd {
	case recognition.CommandCapturePhoto:
		err = o.begin("photo", fsm.EventCapture, o.capturePool, o.runPhoto)
	case recognition.CommandRecordVideo:
		err = o.begin("video", fsm.EventRecord, o.capturePool, o.runVideo)
	}
	if err != nil {
		o.logger.Error("voice command dispatch failed", "command", string(cmd), "error", err.Error())
	}
}

func (o *Orchestrator) runSubmit(ctx context.Context, it *lifecycle.Interaction, text string) {
	if err := o.transition(fsm.EventTranscribed); err != nil {
		o.fail(ctx, it, "state_error", err.Error())
		return
	}
	if o.submitter == nil {
		o.fail(ctx, it, "transport_error", submission.Result{Kind: submission.ResultTransportError, Message: "no server configured"}.Notice())
		return
	}

	current, _ := o.currentArtifact()
	if current != nil {
		it.Track(current)
	}
	req := submission.NewRequest(text, current)
	requestID := submission.NewRequestID()
	o.setPending(requestID)

	result, err := o.submitter.Submit(ctx, req, requestID)
	if err != nil {
		result = submission.Result{Kind: submission.ResultTransportError, Message: err.Error(), Err: err}
	}

	if result.Kind == submission.ResultSuccess {
		if o.speaker != nil && strings.TrimSpace(result.Body) != "" {
			o.speaker.Speak(ctx, result.Body)
		}
		o.finish(ctx, it, fsm.EventResponded, lifecycle.Outcome{
			Result: string(result.Kind),
			Notice: lifecycle.Notice{Severity: lifecycle.SeverityInfo, Text: result.Notice()},
		})
		return
	}
	o.fail(ctx, it, string(result.Kind), result.Notice())
}

func (o *Orchestrator) currentArtifact() (*artifact.Artifact, bool) {
	if o.artifacts == nil {
		return nil, false
	}
	return o.artifacts.Current()
}

func (o *Orchestrator) failCapture(ctx context.Context, it *lifecycle.Interaction, err error) {
	message := err.Error()
	var captureErr *capture.Error
	if errors.As(err, &captureErr) {
		message = captureErr.Message()
	}
	o.logger.Error("capture failed", "interaction_id", it.ID, "error", err.Error())
	o.fail(ctx, it, "capture_error", message)
}

func (o *Orchestrator) fail(ctx context.Context, it *lifecycle.Interaction, result, message string) {
	o.finish(ctx, it, fsm.EventFail, lifecycle.Outcome{
		Result: result,
		Notice: lifecycle.Notice{Severity: lifecycle.SeverityError, Text: message},
	})
}

// finish resets the session and hands cleanup to the lifecycle manager.
func (o *Orchestrator) finish(ctx context.Context, it *lifecycle.Interaction, event fsm.Event, outcome lifecycle.Outcome) {
	o.reset(event)
	o.manager.Finish(ctx, it, outcome)
}
