package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Verdict is the endpointer's decision after one frame.
type Verdict int

const (
	// Continue means keep listening.
	Continue Verdict = iota
	// Complete means speech was heard and the trailing silence window elapsed.
	Complete
	// NoSpeech means the window elapsed without any frame above threshold.
	NoSpeech
)

func (v Verdict) String() string {
	switch v {
	case Complete:
		return "complete"
	case NoSpeech:
		return "no_speech"
	default:
		return "continue"
	}
}

// EndpointConfig bounds one listening window.
type EndpointConfig struct {
	// MinInput is the shortest listening time before silence may end it.
	MinInput time.Duration
	// Silence is the trailing quiet span that ends an utterance.
	Silence time.Duration
	// Max caps total listening time.
	Max time.Duration
	// Threshold is the normalized RMS level (0..1) counted as speech.
	Threshold float64
}

// Endpointer tracks speech energy over consecutive s16le frames.
type Endpointer struct {
	cfg      EndpointConfig
	elapsed  time.Duration
	trailing time.Duration
	heard    bool
}

func NewEndpointer(cfg EndpointConfig) *Endpointer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.02
	}
	return &Endpointer{cfg: cfg}
}

// Heard reports whether any frame crossed the speech threshold.
func (e *Endpointer) Heard() bool {
	return e.heard
}

// Elapsed is the audio time consumed so far.
func (e *Endpointer) Elapsed() time.Duration {
	return e.elapsed
}

// Feed consumes one frame and returns the updated verdict.
func (e *Endpointer) Feed(frame []byte) Verdict {
	span := FrameDuration(len(frame))
	e.elapsed += span
	if RMS(frame) >= e.cfg.Threshold {
		e.heard = true
		e.trailing = 0
	} else {
		e.trailing += span
	}

	windowDone := e.elapsed >= e.cfg.MinInput && e.trailing >= e.cfg.Silence
	capped := e.cfg.Max > 0 && e.elapsed >= e.cfg.Max
	if !windowDone && !capped {
		return Continue
	}
	if e.heard {
		return Complete
	}
	return NoSpeech
}

// FrameDuration converts a byte count of 16 kHz mono s16le into audio time.
func FrameDuration(n int) time.Duration {
	samples := n / 2
	return time.Duration(samples) * time.Second / SampleRate
}

// RMS returns the normalized root-mean-square level of s16le PCM.
func RMS(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(frame); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(frame[i:]))) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(samples))
}
