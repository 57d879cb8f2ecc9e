// Package capture drives the camera for photo and video interactions and
// stages each result as a temp copy in the cache dir.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/rbright/vcinteract/internal/logging"
)

const (
	defaultBufferSize = 8192
	defaultVideoLimit = 5 * time.Second
)

// Latch is the record-toggle state.
type Latch int

const (
	LatchIdle Latch = iota
	LatchRecording
)

func (l Latch) String() string {
	if l == LatchRecording {
		return "recording"
	}
	return "idle"
}

// Options tunes temp staging and the recording ceiling.
type Options struct {
	CacheDir   string
	BufferSize int
	VideoLimit time.Duration
}

// Coordinator serializes camera use and owns the record latch.
type Coordinator struct {
	logger *slog.Logger
	device Device
	opener Opener
	store  *artifact.Store
	opts   Options

	mu            sync.Mutex
	latch         Latch
	stopRequested bool
	limitTimer    *time.Timer
}

// NewCoordinator builds a coordinator. A nil device yields NotInitialized errors.
func NewCoordinator(logger *slog.Logger, device Device, opener Opener, store *artifact.Store, opts Options) *Coordinator {
	if opener == nil {
		opener = FileOpener{}
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.VideoLimit <= 0 {
		opts.VideoLimit = defaultVideoLimit
	}
	if opts.CacheDir == "" {
		opts.CacheDir = os.TempDir()
	}
	return &Coordinator{
		logger: logging.OrDiscard(logger),
		device: device,
		opener: opener,
		store:  store,
		opts:   opts,
	}
}

// Latch returns the current record-toggle state.
func (c *Coordinator) Latch() Latch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latch
}

// CapturePhoto takes one still, stages it, and makes it the active artifact.
func (c *Coordinator) CapturePhoto(ctx context.Context) (*artifact.Artifact, error) {
	if c.device == nil {
		return nil, &Error{Kind: NotInitialized, Op: "capture photo"}
	}

	handle, err := c.device.StartPhoto(ctx)
	if err != nil {
		return nil, classify("capture photo", err)
	}

	path, err := c.stage(handle, ".jpg")
	if err != nil {
		return nil, classify("stage photo", err)
	}

	c.logger.Info("photo captured", "handle", handle, "path", path)
	return c.store.SetPhoto(path, handle), nil
}

// CaptureVideo starts a recording, or stops the active one when called while
// recording (returning ErrRecordingStopped). onStarted runs once the device
// reports the recording is live. The recording is stopped by the coordinator
// after the configured limit regardless of any other signal.
func (c *Coordinator) CaptureVideo(ctx context.Context, onStarted func()) (*artifact.Artifact, error) {
	if c.device == nil {
		return nil, &Error{Kind: NotInitialized, Op: "capture video"}
	}

	c.mu.Lock()
	if c.latch == LatchRecording {
		c.mu.Unlock()
		c.StopVideo()
		return nil, ErrRecordingStopped
	}
	c.latch = LatchRecording
	c.stopRequested = false
	c.mu.Unlock()

	defer c.resetLatch()

	events, err := c.device.StartVideo(ctx)
	if err != nil {
		return nil, classify("capture video", err)
	}

	c.mu.Lock()
	c.limitTimer = time.AfterFunc(c.opts.VideoLimit, func() {
		if c.StopVideo() {
			c.logger.Info("recording limit reached", "limit_ms", c.opts.VideoLimit.Milliseconds())
		}
	})
	c.mu.Unlock()

	handle, err := c.awaitFinalize(ctx, events, onStarted)
	c.resetLatch()
	if err != nil {
		return nil, classify("capture video", err)
	}

	path, err := c.stage(handle, ".mp4")
	if err != nil {
		return nil, classify("stage video", err)
	}

	c.logger.Info("video captured", "handle", handle, "path", path)
	return c.store.SetVideo(path, handle), nil
}

func (c *Coordinator) awaitFinalize(ctx context.Context, events <-chan VideoEvent, onStarted func()) (string, error) {
	done := ctx.Done()
	for {
		select {
		case <-done:
			c.StopVideo()
			// keep draining so the device can finalize what it has
			done = nil
		case ev, ok := <-events:
			if !ok {
				return "", errors.New("recording ended without finalize")
			}
			switch ev.Kind {
			case VideoStarted:
				if onStarted != nil {
					onStarted()
				}
			case VideoFinalized:
				if ev.Err != nil {
					return "", ev.Err
				}
				if ev.Handle == "" {
					return "", errors.New("recording finalized without media handle")
				}
				return ev.Handle, nil
			}
		}
	}
}

// StopVideo asks the active recording to finalize. It reports false and does
// nothing when no recording is active.
func (c *Coordinator) StopVideo() bool {
	c.mu.Lock()
	if c.latch != LatchRecording {
		c.mu.Unlock()
		return false
	}
	if c.stopRequested {
		c.mu.Unlock()
		return true
	}
	c.stopRequested = true
	if c.limitTimer != nil {
		c.limitTimer.Stop()
	}
	c.mu.Unlock()

	if err := c.device.StopVideo(); err != nil {
		c.logger.Warn("stop recording failed", "error", err.Error())
	}
	return true
}

func (c *Coordinator) resetLatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limitTimer != nil {
		c.limitTimer.Stop()
		c.limitTimer = nil
	}
	c.latch = LatchIdle
	c.stopRequested = false
}

// stage copies the media behind handle into a fresh temp file using a fixed buffer.
func (c *Coordinator) stage(handle, ext string) (path string, err error) {
	src, err := c.opener.Open(handle)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", handle, err)
	}
	defer src.Close()

	if err := os.MkdirAll(c.opts.CacheDir, 0o700); err != nil {
		return "", err
	}
	dst, err := os.CreateTemp(c.opts.CacheDir, "temp_*"+ext)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := dst.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dst.Name())
		}
	}()

	buf := make([]byte, c.opts.BufferSize)
	// wrappers hide ReaderFrom/WriterTo so the fixed buffer is honored
	if _, err := io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf); err != nil {
		return "", fmt.Errorf("copy %s: %w", handle, err)
	}
	return dst.Name(), nil
}
