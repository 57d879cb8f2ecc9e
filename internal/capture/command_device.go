package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/vcinteract/internal/command"
	"github.com/rbright/vcinteract/internal/logging"
)

// CommandDevice drives a camera through configured external commands. Each
// argv must contain an {output} placeholder for the media file path.
type CommandDevice struct {
	logger    *slog.Logger
	photoArgv []string
	videoArgv []string
	mediaDir  string
	now       func() time.Time

	mu            sync.Mutex
	active        *exec.Cmd
	stopRequested bool
}

// NewCommandDevice builds a command-backed camera writing into mediaDir.
func NewCommandDevice(logger *slog.Logger, photoArgv, videoArgv []string, mediaDir string) *CommandDevice {
	return &CommandDevice{
		logger:    logging.OrDiscard(logger),
		photoArgv: photoArgv,
		videoArgv: videoArgv,
		mediaDir:  mediaDir,
		now:       time.Now,
	}
}

func (d *CommandDevice) StartPhoto(ctx context.Context) (string, error) {
	out, err := d.outputPath("image", ".jpg")
	if err != nil {
		return "", err
	}
	if _, err := command.Run(ctx, command.Expand(d.photoArgv, map[string]string{"output": out}), ""); err != nil {
		return "", err
	}
	if err := requireMedia(out); err != nil {
		return "", err
	}
	return "file://" + out, nil
}

func (d *CommandDevice) StartVideo(ctx context.Context) (<-chan VideoEvent, error) {
	if len(d.videoArgv) == 0 {
		return nil, command.ErrEmptyArgv
	}
	out, err := d.outputPath("video", ".mp4")
	if err != nil {
		return nil, err
	}

	argv := command.Expand(d.videoArgv, map[string]string{"output": out})

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return nil, errors.New("recording already active")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command %s: %w", argv[0], err)
	}
	d.active = cmd
	d.stopRequested = false

	events := make(chan VideoEvent, 2)
	events <- VideoEvent{Kind: VideoStarted}
	exited := make(chan struct{})

	go func() {
		defer close(events)
		waitErr := cmd.Wait()
		close(exited)

		d.mu.Lock()
		stopped := d.stopRequested
		d.active = nil
		d.mu.Unlock()

		mediaErr := requireMedia(out)
		switch {
		case mediaErr == nil && (waitErr == nil || stopped):
			events <- VideoEvent{Kind: VideoFinalized, Handle: "file://" + out}
		case waitErr != nil:
			events <- VideoEvent{Kind: VideoFinalized, Err: fmt.Errorf("wait for %s: %w", argv[0], waitErr)}
		default:
			events <- VideoEvent{Kind: VideoFinalized, Err: mediaErr}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = d.StopVideo()
		case <-exited:
		}
	}()

	return events, nil
}

// StopVideo sends SIGINT so the recorder can finalize its container.
func (d *CommandDevice) StopVideo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil || d.active.Process == nil {
		return nil
	}
	d.stopRequested = true
	if err := d.active.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (d *CommandDevice) outputPath(prefix, ext string) (string, error) {
	if err := os.MkdirAll(d.mediaDir, 0o700); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s%s", prefix, d.now().Format("20060102_150405"), ext)
	return filepath.Join(d.mediaDir, name), nil
}

func requireMedia(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("media file %s is empty", path)
	}
	return nil
}
