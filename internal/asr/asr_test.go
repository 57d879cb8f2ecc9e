package asr

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rbright/vcinteract/internal/audio"
	"github.com/rbright/vcinteract/internal/recognition"
	"github.com/rbright/vcinteract/internal/riva"
)

type fakeSource struct {
	frames chan []byte
	pcm    []byte
	stops  atomic.Int32
}

func newFakeSource(frames ...[]byte) *fakeSource {
	src := &fakeSource{frames: make(chan []byte, len(frames))}
	for _, f := range frames {
		src.frames <- f
		src.pcm = append(src.pcm, f...)
	}
	close(src.frames)
	return src
}

func (s *fakeSource) Frames() <-chan []byte { return s.frames }
func (s *fakeSource) PCM() []byte           { return s.pcm }
func (s *fakeSource) Stop() error {
	s.stops.Add(1)
	return nil
}

type fakeRecognizer struct {
	alternatives []string
	err          error
	gotBytes     int
	gotMax       int
}

func (r *fakeRecognizer) Recognize(_ context.Context, pcm []byte, maxAlternatives int) ([]string, error) {
	r.gotBytes = len(pcm)
	r.gotMax = maxAlternatives
	return r.alternatives, r.err
}

func frame(level int16) []byte {
	out := make([]byte, audio.FrameBytes)
	for i := 0; i < len(out); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(level))
	}
	return out
}

func repeat(level int16, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = frame(level)
	}
	return out
}

var shortParams = recognition.Params{
	MinInput:        40 * time.Millisecond,
	Silence:         40 * time.Millisecond,
	MaxAlternatives: 5,
}

func collect(t *testing.T, events <-chan recognition.Event) []recognition.Event {
	t.Helper()
	var out []recognition.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("engine did not close its event channel")
		}
	}
}

func TestMicEngineRecognizesUtterance(t *testing.T) {
	frames := append(repeat(10000, 3), repeat(0, 4)...)
	src := newFakeSource(frames...)
	rec := &fakeRecognizer{alternatives: []string{"turn on the light"}}
	engine := NewMicEngine(nil, func(context.Context) (Source, error) { return src, nil }, rec, MicConfig{Threshold: 0.02})

	require.True(t, engine.Available())
	events, err := engine.Listen(context.Background(), shortParams)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	require.Equal(t, recognition.EventReady, got[0].Kind)
	require.Equal(t, recognition.EventResult, got[1].Kind)
	require.Equal(t, []string{"turn on the light"}, got[1].Alternatives)
	require.Equal(t, 5, rec.gotMax)
	require.Equal(t, 7*audio.FrameBytes, rec.gotBytes)
	require.GreaterOrEqual(t, src.stops.Load(), int32(1))
}

func TestMicEngineTerminalErrors(t *testing.T) {
	tests := []struct {
		name   string
		frames [][]byte
		rec    *fakeRecognizer
		kind   recognition.EventKind
		code   recognition.Code
	}{
		{
			name:   "silence only",
			frames: repeat(0, 10),
			rec:    &fakeRecognizer{},
			kind:   recognition.EventError,
			code:   recognition.CodeSpeechTimeout,
		},
		{
			name: "stream ends before speech",
			rec:  &fakeRecognizer{},
			kind: recognition.EventError,
			code: recognition.CodeAudio,
		},
		{
			name:   "server unavailable",
			frames: append(repeat(10000, 2), repeat(0, 4)...),
			rec:    &fakeRecognizer{err: status.Error(codes.Unavailable, "down")},
			kind:   recognition.EventError,
			code:   recognition.CodeNetwork,
		},
		{
			name:   "no hypotheses",
			frames: append(repeat(10000, 2), repeat(0, 4)...),
			rec:    &fakeRecognizer{},
			kind:   recognition.EventNoMatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeSource(tc.frames...)
			engine := NewMicEngine(nil, func(context.Context) (Source, error) { return src, nil }, tc.rec, MicConfig{})
			events, err := engine.Listen(context.Background(), shortParams)
			require.NoError(t, err)

			got := collect(t, events)
			require.Len(t, got, 2)
			require.Equal(t, tc.kind, got[1].Kind)
			require.Equal(t, tc.code, got[1].Code)
		})
	}
}

func TestMicEngineOpenFailureIsImmediate(t *testing.T) {
	engine := NewMicEngine(nil, func(context.Context) (Source, error) {
		return nil, errors.New("no audio input devices found")
	}, &fakeRecognizer{}, MicConfig{})

	events, err := engine.Listen(context.Background(), shortParams)
	require.Error(t, err)
	require.Nil(t, events)
}

func TestMicEngineUnavailableWithoutRecognizer(t *testing.T) {
	var nilEngine *MicEngine
	require.False(t, nilEngine.Available())
	require.False(t, NewMicEngine(nil, nil, nil, MicConfig{}).Available())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want recognition.Code
	}{
		{err: context.DeadlineExceeded, want: recognition.CodeNetworkTimeout},
		{err: context.Canceled, want: recognition.CodeClient},
		{err: fmt.Errorf("%w: refused", ErrDial), want: recognition.CodeNetwork},
		{err: status.Error(codes.ResourceExhausted, "busy"), want: recognition.CodeBusy},
		{err: status.Error(codes.PermissionDenied, "no"), want: recognition.CodePermissions},
		{err: status.Error(codes.Unauthenticated, "no"), want: recognition.CodePermissions},
		{err: status.Error(codes.Internal, "boom"), want: recognition.CodeServer},
		{err: status.Error(codes.DeadlineExceeded, "slow"), want: recognition.CodeNetworkTimeout},
		{err: status.Error(codes.InvalidArgument, "bad"), want: recognition.CodeClient},
		{err: errors.New("plain"), want: recognition.CodeUnknown},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Classify(tc.err), tc.err.Error())
	}
	require.Equal(t, recognition.Code(""), Classify(nil))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recognizer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\nset -euo pipefail\n"+body+"\n"), 0o755))
	return path
}

func TestCommandEngineReturnsAlternatives(t *testing.T) {
	script := writeScript(t, `echo "please record a quick clip"
echo ""
echo "window $1 $2 max $3"`)
	engine := NewCommandEngine(nil, []string{script, "{min_ms}", "{silence_ms}", "{max_alternatives}"})
	require.True(t, engine.Available())

	events, err := engine.Listen(context.Background(), recognition.FallbackParams)
	require.NoError(t, err)
	got := collect(t, events)
	require.Len(t, got, 2)
	require.Equal(t, recognition.EventResult, got[1].Kind)
	require.Equal(t, []string{"please record a quick clip"}, got[1].Alternatives)

	params := recognition.FallbackParams
	params.MaxAlternatives = 5
	events, err = engine.Listen(context.Background(), params)
	require.NoError(t, err)
	got = collect(t, events)
	require.Equal(t, []string{"please record a quick clip", "window 10000 7000 max 5"}, got[1].Alternatives)
}

func TestCommandEngineFailures(t *testing.T) {
	t.Run("exit status", func(t *testing.T) {
		engine := NewCommandEngine(nil, []string{writeScript(t, `echo "mic busy" >&2; exit 3`)})
		events, err := engine.Listen(context.Background(), recognition.FallbackParams)
		require.NoError(t, err)
		got := collect(t, events)
		require.Equal(t, recognition.EventError, got[1].Kind)
		require.Equal(t, recognition.CodeAudio, got[1].Code)
		require.ErrorContains(t, got[1].Err, "mic busy")
	})

	t.Run("empty output", func(t *testing.T) {
		engine := NewCommandEngine(nil, []string{writeScript(t, `true`)})
		events, err := engine.Listen(context.Background(), recognition.FallbackParams)
		require.NoError(t, err)
		got := collect(t, events)
		require.Equal(t, recognition.EventNoMatch, got[1].Kind)
	})

	t.Run("missing binary", func(t *testing.T) {
		engine := NewCommandEngine(nil, []string{"vcinteract-no-such-recognizer"})
		require.False(t, engine.Available())
		_, err := engine.Listen(context.Background(), recognition.FallbackParams)
		require.Error(t, err)
	})

	t.Run("unconfigured", func(t *testing.T) {
		require.False(t, NewCommandEngine(nil, nil).Available())
	})
}

func TestRivaRecognizerUnreachable(t *testing.T) {
	rec := RivaRecognizer{
		Conn:         riva.Config{Endpoint: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond},
		LanguageCode: "en-US",
		Retries:      1,
	}
	_, err := rec.Recognize(context.Background(), frame(100), 1)
	require.ErrorIs(t, err, ErrDial)
	require.Contains(t, []recognition.Code{recognition.CodeNetwork, recognition.CodeNetworkTimeout}, Classify(err))
}
