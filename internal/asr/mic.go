// Package asr implements the recognition engines: a Pulse microphone fed to
// Riva, and an external command fallback.
package asr

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/vcinteract/internal/audio"
	"github.com/rbright/vcinteract/internal/logging"
	"github.com/rbright/vcinteract/internal/recognition"
)

// Source is a live PCM capture.
type Source interface {
	Frames() <-chan []byte
	PCM() []byte
	Stop() error
}

// OpenFunc starts capturing from the microphone.
type OpenFunc func(ctx context.Context) (Source, error)

// Recognizer transcribes one utterance into ranked alternatives.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, maxAlternatives int) ([]string, error)
}

// MicConfig tunes endpointing for MicEngine.
type MicConfig struct {
	Threshold float64
	MaxListen time.Duration
}

// MicEngine records an utterance, endpoints on silence, then recognizes it.
type MicEngine struct {
	logger     *slog.Logger
	open       OpenFunc
	recognizer Recognizer
	cfg        MicConfig
}

func NewMicEngine(logger *slog.Logger, open OpenFunc, recognizer Recognizer, cfg MicConfig) *MicEngine {
	return &MicEngine{
		logger:     logging.OrDiscard(logger),
		open:       open,
		recognizer: recognizer,
		cfg:        cfg,
	}
}

func (e *MicEngine) Available() bool {
	return e != nil && e.open != nil && e.recognizer != nil
}

// Listen fails fast when the microphone cannot be opened so the caller can
// fall back. Everything after that is reported on the channel.
func (e *MicEngine) Listen(ctx context.Context, params recognition.Params) (<-chan recognition.Event, error) {
	src, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan recognition.Event, 2)
	go func() {
		defer close(events)
		events <- recognition.Event{Kind: recognition.EventReady}
		events <- e.run(ctx, src, params)
	}()
	return events, nil
}

func (e *MicEngine) run(ctx context.Context, src Source, params recognition.Params) recognition.Event {
	limit := params.MinInput + params.Silence
	if params.Continuous && e.cfg.MaxListen > 0 {
		limit = e.cfg.MaxListen
	}
	endpointer := audio.NewEndpointer(audio.EndpointConfig{
		MinInput:  params.MinInput,
		Silence:   params.Silence,
		Max:       limit,
		Threshold: e.cfg.Threshold,
	})

	verdict := audio.Continue
	frames := src.Frames()
loop:
	for verdict == audio.Continue {
		select {
		case <-ctx.Done():
			_ = src.Stop()
			return recognition.Event{Kind: recognition.EventError, Code: recognition.CodeClient, Err: ctx.Err()}
		case frame, ok := <-frames:
			if !ok {
				break loop
			}
			verdict = endpointer.Feed(frame)
		}
	}
	if err := src.Stop(); err != nil {
		e.logger.Warn("stop microphone failed", "error", err.Error())
	}

	if verdict == audio.Continue && !endpointer.Heard() {
		return recognition.Event{Kind: recognition.EventError, Code: recognition.CodeAudio}
	}
	if verdict == audio.NoSpeech || !endpointer.Heard() {
		return recognition.Event{Kind: recognition.EventError, Code: recognition.CodeSpeechTimeout}
	}

	pcm := src.PCM()
	e.logger.Debug("utterance captured", "bytes", len(pcm), "elapsed_ms", endpointer.Elapsed().Milliseconds())
	alternatives, err := e.recognizer.Recognize(ctx, pcm, params.MaxAlternatives)
	if err != nil {
		return recognition.Event{Kind: recognition.EventError, Code: Classify(err), Err: err}
	}
	if len(alternatives) == 0 {
		return recognition.Event{Kind: recognition.EventNoMatch}
	}
	return recognition.Event{Kind: recognition.EventResult, Alternatives: alternatives}
}

// PulseOpener selects input (or fallback) among live Pulse sources and
// starts recording from it.
func PulseOpener(logger *slog.Logger, input, fallback string) OpenFunc {
	logger = logging.OrDiscard(logger)
	return func(ctx context.Context) (Source, error) {
		selection, err := audio.SelectDevice(ctx, input, fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn(selection.Warning)
		}
		return audio.Record(ctx, selection.Device)
	}
}
