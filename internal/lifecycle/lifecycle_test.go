package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/vcinteract/internal/artifact"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := startLoop(t)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 20 {
		require.True(t, loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 20
	})
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestLoopRejectsPostAfterStop(t *testing.T) {
	loop := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loop.Run(ctx))
	require.False(t, loop.Post(func() {}))
	require.ErrorIs(t, loop.Run(context.Background()), ErrLoopStopped)
}

func TestLoopDrainsQueuedTasksOnShutdown(t *testing.T) {
	loop := NewLoop(4)
	var ran atomic.Int32
	for range 3 {
		require.True(t, loop.Post(func() { ran.Add(1) }))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loop.Run(ctx))
	require.Equal(t, int32(3), ran.Load())
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewPool(context.Background(), nil, "files", 2, 8)
	var ran atomic.Int32
	for range 5 {
		require.NoError(t, pool.Submit(func(context.Context) { ran.Add(1) }))
	}
	require.NoError(t, pool.Close())
	require.Equal(t, int32(5), ran.Load())
	require.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrPoolClosed)
	require.NoError(t, pool.Close())
}

func TestPoolReportsFullQueue(t *testing.T) {
	pool := NewPool(context.Background(), nil, "capture", 1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, pool.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(func(context.Context) {}))
	require.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrPoolFull)

	close(release)
	require.NoError(t, pool.Close())
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	pool := NewPool(context.Background(), nil, "files", 1, 4)
	var ran atomic.Bool
	require.NoError(t, pool.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, pool.Submit(func(context.Context) { ran.Store(true) }))
	require.NoError(t, pool.Close())
	require.True(t, ran.Load())
}

func TestControlCountsTransitions(t *testing.T) {
	var seen []bool
	control := NewControl(func(enabled bool) { seen = append(seen, enabled) })
	require.True(t, control.Enabled())

	control.Disable()
	require.False(t, control.Enabled())
	control.Enable()

	enables, disables := control.Counts()
	require.Equal(t, 1, enables)
	require.Equal(t, 1, disables)
	require.Equal(t, []bool{false, true}, seen)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type outcomeCounter struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeCounter) Interaction(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func TestManagerFinishRunsCleanupExactlyOnce(t *testing.T) {
	loop := startLoop(t)
	files := NewPool(context.Background(), nil, "files", 2, 8)
	t.Cleanup(func() { _ = files.Close() })

	store := artifact.NewStore(nil, nil)
	path := filepath.Join(t.TempDir(), "temp_1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	control := NewControl(nil)
	notifier := &recordingNotifier{}
	observer := &outcomeCounter{}
	manager := NewManager(Deps{
		Loop:     loop,
		Control:  control,
		Files:    files,
		Releaser: store,
		Notifier: notifier,
		Observer: observer,
	})

	it := manager.Begin("listen")
	require.NotEmpty(t, it.ID)
	waitFor(t, func() bool { return !control.Enabled() })

	it.Track(store.SetPhoto(path, "file://"+path))

	outcome := Outcome{Result: "server_error", Notice: Notice{Severity: SeverityError, Text: "Server error: 500 - overload"}}
	var wg sync.WaitGroup
	var wins atomic.Int32
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if manager.Finish(context.Background(), it, outcome) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.True(t, it.Finished())
	waitFor(t, control.Enabled)
	waitFor(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})

	enables, disables := control.Counts()
	require.Equal(t, 1, enables)
	require.Equal(t, 1, disables)
	require.Equal(t, []Notice{outcome.Notice}, notifier.all())
	require.Equal(t, []string{"server_error"}, observer.outcomes)

	_, ok := store.Current()
	require.False(t, ok)
}

func TestManagerWorksWithoutLoopOrPool(t *testing.T) {
	control := NewControl(nil)
	manager := NewManager(Deps{Control: control})

	it := manager.Begin("photo")
	require.False(t, control.Enabled())
	require.True(t, manager.Finish(context.Background(), it, Outcome{Result: "success"}))
	require.True(t, control.Enabled())
	require.False(t, manager.Finish(context.Background(), nil, Outcome{}))
}
