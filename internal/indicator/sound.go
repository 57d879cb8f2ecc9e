package indicator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueError
)

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// Cue tones. Rising pairs mean "go", falling pairs mean "failed".
var cueTones = map[cueKind][]toneSpec{
	cueStart: {
		{frequencyHz: 660, duration: 60 * time.Millisecond, volume: 0.2},
		{frequencyHz: 990, duration: 80 * time.Millisecond, volume: 0.2},
	},
	cueStop: {
		{frequencyHz: 590, duration: 130 * time.Millisecond, volume: 0.2},
	},
	cueComplete: {
		{frequencyHz: 784, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1047, duration: 100 * time.Millisecond, volume: 0.18},
	},
	cueError: {
		{frequencyHz: 440, duration: 90 * time.Millisecond, volume: 0.2},
		{frequencyHz: 330, duration: 120 * time.Millisecond, volume: 0.2},
	},
}

var (
	cueOnce sync.Once
	cuePCM  map[cueKind][]int16
)

func emitCue(kind cueKind) error {
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(samples)
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("vcinteract"),
		pulse.ClientApplicationIconName("camera-photo"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("vcinteract cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}

	return nil
}

func cueSamples(kind cueKind) []int16 {
	cueOnce.Do(func() {
		cuePCM = make(map[cueKind][]int16, len(cueTones))
		for k, tones := range cueTones {
			cuePCM[k] = synthesizeCue(tones)
		}
	})
	return cuePCM[kind]
}

// synthesizeCue concatenates tones separated by a short silence.
func synthesizeCue(tones []toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(20*time.Millisecond))
	var pcm []int16
	for i, tone := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(tone)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear fade of at most 5ms at each end.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := max(1, min(n/10, cueSampleRate/200))
	pcm := make([]int16, n)
	for i := range n {
		gain := min(1, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * spec.frequencyHz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * spec.volume * gain * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
