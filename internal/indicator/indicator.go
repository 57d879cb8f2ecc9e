// Package indicator shows progress and outcome notifications on the desktop
// and plays short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/vcinteract/internal/config"
	"github.com/rbright/vcinteract/internal/lifecycle"
	"github.com/rbright/vcinteract/internal/logging"
)

const progressTimeoutMS = 300000

// Desktop is the concrete indicator: one replaceable freedesktop
// notification plus pulse-synthesized cues.
type Desktop struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	bus      desktopBus
	cue      func(cueKind) error

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
}

func NewDesktop(cfg config.IndicatorConfig, logger *slog.Logger) *Desktop {
	return &Desktop{
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
		messages: defaultMessages(),
		bus:      sessionBus{},
		cue:      emitCue,
	}
}

// ShowRecording signals that video recording is starting.
func (d *Desktop) ShowRecording(ctx context.Context) {
	d.playCue(cueStart)
	d.progress(ctx, d.messages.recordingStarted)
}

// ShowRecorded signals that the recording finalized.
func (d *Desktop) ShowRecorded(ctx context.Context) {
	d.playCue(cueStop)
	d.progress(ctx, d.messages.recordingComplete)
}

// ShowListening signals that the recognizer is ready for speech.
func (d *Desktop) ShowListening(ctx context.Context) {
	d.playCue(cueStart)
	d.progress(ctx, d.messages.listening)
}

// Notify displays the terminal notice for an interaction.
func (d *Desktop) Notify(ctx context.Context, notice lifecycle.Notice) {
	text := strings.TrimSpace(notice.Text)
	if notice.Severity == lifecycle.SeverityError {
		d.playCue(cueError)
		if text == "" {
			text = d.messages.errorText
		}
		timeout := d.cfg.ErrorTimeoutMS
		if timeout <= 0 {
			timeout = 1200
		}
		d.show(ctx, text, timeout)
		return
	}
	d.playCue(cueComplete)
	if text == "" {
		d.Hide(ctx)
		return
	}
	d.show(ctx, text, 0)
}

// Hide dismisses the active notification.
func (d *Desktop) Hide(ctx context.Context) {
	if !d.cfg.Enable {
		return
	}
	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()
	if id == 0 {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.bus.Close(ctx, id)
	})
}

func (d *Desktop) progress(ctx context.Context, text string) {
	d.show(ctx, text, progressTimeoutMS)
}

func (d *Desktop) show(ctx context.Context, text string, timeoutMS int) {
	if !d.cfg.Enable || text == "" {
		return
	}
	appName := strings.TrimSpace(d.cfg.DesktopAppName)
	if appName == "" {
		appName = "vcinteract"
	}
	d.run(ctx, func(ctx context.Context) error {
		d.mu.Lock()
		replaceID := d.notificationID
		d.mu.Unlock()

		id, err := d.bus.Notify(ctx, appName, replaceID, appName, text, timeoutMS)
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.notificationID = id
		d.mu.Unlock()
		return nil
	})
}

// run executes a notification call with a bounded timeout.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *Desktop) playCue(kind cueKind) {
	if !d.cfg.SoundEnable || d.cue == nil {
		return
	}
	go func() {
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		if err := d.cue(kind); err != nil {
			d.logger.Debug("indicator audio cue failed", "error", err.Error())
		}
	}()
}
