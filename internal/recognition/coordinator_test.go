package recognition

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	available bool
	startErr  error
	events    []Event
	release   chan struct{}

	mu     sync.Mutex
	params []Params
}

func (f *fakeEngine) Available() bool { return f.available }

func (f *fakeEngine) Listen(_ context.Context, params Params) (<-chan Event, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	ch := make(chan Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	if f.release == nil {
		close(ch)
	} else {
		go func() {
			<-f.release
			close(ch)
		}()
	}
	return ch, nil
}

func (f *fakeEngine) calls() []Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Params(nil), f.params...)
}

type countingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *countingObserver) Recognition(path, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, path+"/"+kind)
}

func TestListenPrimaryTranscript(t *testing.T) {
	primary := &fakeEngine{available: true, events: []Event{
		{Kind: EventReady},
		{Kind: EventResult, Alternatives: []string{"  turn on the light ", "turn on the lights"}},
	}}
	fallback := &fakeEngine{available: true}
	observer := &countingObserver{}
	var ready []Path

	c := NewCoordinator(nil, primary, fallback, Options{
		OnReady:  func(p Path) { ready = append(ready, p) },
		Observer: observer,
	})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeTranscript, outcome.Kind)
	require.Equal(t, "turn on the light", outcome.Text)
	require.Equal(t, PathPrimary, outcome.Path)
	require.Len(t, outcome.Alternatives, 2)
	require.Equal(t, []Path{PathPrimary}, ready)
	require.Equal(t, []Params{PrimaryParams}, primary.calls())
	require.Empty(t, fallback.calls())
	require.Equal(t, []string{"primary/transcript"}, observer.calls)
	require.Equal(t, StateIdle, c.State())
}

func TestListenFallsBackWhenPrimaryUnavailable(t *testing.T) {
	primary := &fakeEngine{available: false}
	fallback := &fakeEngine{available: true, events: []Event{
		{Kind: EventResult, Alternatives: []string{"please record a quick clip"}},
	}}

	c := NewCoordinator(nil, primary, fallback, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, PathFallback, outcome.Path)
	require.Equal(t, "please record a quick clip", outcome.Text)
	require.Equal(t, []Params{FallbackParams}, fallback.calls())
}

func TestListenFallsBackWhenPrimaryFailsToStart(t *testing.T) {
	primary := &fakeEngine{available: true, startErr: errors.New("no microphone")}
	fallback := &fakeEngine{available: true, events: []Event{{Kind: EventNoMatch}}}

	c := NewCoordinator(nil, primary, fallback, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeNoMatch, outcome.Kind)
	require.Equal(t, PathFallback, outcome.Path)
	require.Equal(t, "No speech detected", outcome.Message())
}

func TestListenNoEngines(t *testing.T) {
	c := NewCoordinator(nil, nil, &fakeEngine{available: false}, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, CodeEngineUnavailable, outcome.Code)
	require.Equal(t, "Speech recognition error: Speech recognition not available", outcome.Message())
}

func TestListenFallbackStartError(t *testing.T) {
	c := NewCoordinator(nil, nil, &fakeEngine{available: true, startErr: errors.New("boom")}, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, CodeClient, outcome.Code)
}

func TestListenDeliversOnlyFirstTerminalEvent(t *testing.T) {
	primary := &fakeEngine{available: true, events: []Event{
		{Kind: EventError, Code: CodeNetwork},
		{Kind: EventResult, Alternatives: []string{"late"}},
	}}
	c := NewCoordinator(nil, primary, nil, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeError, outcome.Kind)
	require.Equal(t, CodeNetwork, outcome.Code)
	require.Equal(t, "Speech recognition error: Network error", outcome.Message())
}

func TestListenSkipsNonTerminalEvents(t *testing.T) {
	primary := &fakeEngine{available: true, events: []Event{
		{},
		{Kind: EventReady},
		{Kind: EventResult, Alternatives: []string{"hello"}},
	}}
	var ready int
	c := NewCoordinator(nil, primary, nil, Options{OnReady: func(Path) { ready++ }})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeTranscript, outcome.Kind)
	require.Equal(t, "hello", outcome.Text)
	require.Equal(t, 1, ready)

	require.False(t, Event{Kind: EventReady}.Terminal())
	require.True(t, Event{Kind: EventNoMatch}.Terminal())
}

func TestListenMapsEmptyResultAndNoMatchCode(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{name: "blank alternatives", ev: Event{Kind: EventResult, Alternatives: []string{" ", ""}}},
		{name: "no match code", ev: Event{Kind: EventError, Code: CodeNoMatch}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCoordinator(nil, &fakeEngine{available: true, events: []Event{tc.ev}}, nil, Options{})
			outcome, err := c.Listen(context.Background())
			require.NoError(t, err)
			require.Equal(t, OutcomeNoMatch, outcome.Kind)
		})
	}
}

func TestListenClosedChannelIsClientError(t *testing.T) {
	c := NewCoordinator(nil, &fakeEngine{available: true}, nil, Options{})
	outcome, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, CodeClient, outcome.Code)
	require.Error(t, outcome.Err)
}

func TestListenHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	c := NewCoordinator(nil, &fakeEngine{available: true, release: release}, nil, Options{})
	outcome, err := c.Listen(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeError, outcome.Kind)
	require.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestCodeMessages(t *testing.T) {
	require.Equal(t, "Audio recording error", CodeAudio.Message())
	require.Equal(t, "Recognition service busy", CodeBusy.Message())
	require.Equal(t, "No speech input", CodeSpeechTimeout.Message())
	require.Equal(t, "Unknown error", Code("weird").Message())
}

func TestDetectCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
		ok   bool
	}{
		{in: "please record a quick clip", want: CommandRecordVideo, ok: true},
		{in: "Capture this", want: CommandCapturePhoto, ok: true},
		{in: "capture and record", want: CommandCapturePhoto, ok: true},
		{in: "turn on the light", ok: false},
	}
	for _, tc := range tests {
		got, ok := DetectCommand(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
	require.Equal(t, "Voice command: Record video", CommandRecordVideo.Notice())
	require.Equal(t, "Voice command: Capture photo", CommandCapturePhoto.Notice())
}
