package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture rate sent to recognizers.
	SampleRate = 16000
	// FrameBytes is 20ms of 16 kHz mono s16le.
	FrameBytes = 640
)

// Recording streams fixed-size PCM frames from one Pulse source and keeps the
// full utterance for offline recognition.
type Recording struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	halt   chan struct{}

	mu        sync.Mutex
	partial   []byte
	utterance []byte
	stopped   bool

	writers sync.WaitGroup
	total   atomic.Int64
}

// Record opens a record stream on the selected source. The recording stops
// when ctx is cancelled or Stop is called.
func Record(ctx context.Context, selected Device) (*Recording, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	rec := newRecording(selected)
	rec.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(rec.accept), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName("vcinteract prompt"),
	)
	if err != nil {
		_ = rec.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	rec.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = rec.Stop()
		case <-rec.halt:
		}
	}()

	return rec, nil
}

func newRecording(device Device) *Recording {
	return &Recording{
		device: device,
		frames: make(chan []byte, 256),
		halt:   make(chan struct{}),
	}
}

func (r *Recording) Device() Device {
	return r.device
}

// Frames yields FrameBytes slices; the final frame may be shorter.
func (r *Recording) Frames() <-chan []byte {
	return r.frames
}

func (r *Recording) BytesCaptured() int64 {
	return r.total.Load()
}

// PCM returns a copy of everything recorded so far.
func (r *Recording) PCM() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.utterance...)
}

// Stop halts the stream, flushes the partial frame, and closes Frames once.
func (r *Recording) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.halt)
	r.mu.Unlock()

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}

	r.writers.Wait()

	r.mu.Lock()
	tail := r.partial
	r.partial = nil
	r.mu.Unlock()

	if len(tail) > 0 {
		select {
		case r.frames <- tail:
		default:
		}
	}
	close(r.frames)
	return nil
}

// accept receives raw Pulse buffers and re-slices them into frames.
func (r *Recording) accept(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same lock as stopped so Stop's Wait cannot race it.
	r.writers.Add(1)
	defer r.writers.Done()

	r.utterance = append(r.utterance, buffer...)
	r.partial = append(r.partial, buffer...)
	var ready [][]byte
	for len(r.partial) >= FrameBytes {
		ready = append(ready, append([]byte(nil), r.partial[:FrameBytes]...))
		r.partial = r.partial[FrameBytes:]
	}
	r.mu.Unlock()

	r.total.Add(int64(len(buffer)))

	for _, frame := range ready {
		select {
		case <-r.halt:
			return 0, io.EOF
		case r.frames <- frame:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
