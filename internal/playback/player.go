package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/vcinteract/internal/logging"
)

// ChunkObserver counts queued chunks.
type ChunkObserver interface {
	ChunksQueued(n int)
}

// Player queues response text on a Synth.
type Player struct {
	logger   *slog.Logger
	synth    Synth
	budget   int
	observer ChunkObserver

	mu sync.Mutex
}

func NewPlayer(logger *slog.Logger, synth Synth, budget int, observer ChunkObserver) *Player {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Player{
		logger:   logging.OrDiscard(logger),
		synth:    synth,
		budget:   budget,
		observer: observer,
	}
}

// Speak queues every chunk of text in order and returns how many were
// accepted. Nothing is queued when the synth is not ready or text is blank.
// Concurrent calls never interleave their chunks.
func (p *Player) Speak(ctx context.Context, text string) int {
	if strings.TrimSpace(text) == "" {
		p.logger.Debug("empty response; nothing to speak")
		return 0
	}
	if p.synth == nil || !p.synth.Ready() {
		p.logger.Warn("speech synthesizer not ready; dropping response")
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	queued := 0
	for chunk := range Segment(text, p.budget) {
		if ctx.Err() != nil {
			break
		}
		if err := p.synth.Speak(chunk.Text, chunk.UtteranceID, QueueAdd); err != nil {
			p.logger.Error("speech chunk rejected", "utterance_id", chunk.UtteranceID, "error", err.Error())
			continue
		}
		queued++
	}
	if p.observer != nil && queued > 0 {
		p.observer.ChunksQueued(queued)
	}
	p.logger.Info("response queued for speech", "chunks", queued)
	return queued
}

// Watch logs synthesizer events until ctx ends or the synth closes.
func (p *Player) Watch(ctx context.Context) {
	if p.synth == nil {
		return
	}
	events := p.synth.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventError:
				p.logger.Error("speech failed", "utterance_id", ev.UtteranceID, "error", errString(ev.Err))
			default:
				p.logger.Debug("speech progress", "utterance_id", ev.UtteranceID, "event", string(ev.Kind))
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
