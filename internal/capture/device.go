package capture

import (
	"context"
	"io"
	"os"
	"strings"
)

// VideoEventKind tags events emitted during one recording.
type VideoEventKind int

const (
	VideoStarted VideoEventKind = iota + 1
	VideoFinalized
)

// VideoEvent is one recording lifecycle event. Finalized carries either a
// media handle or the failure that ended the recording.
type VideoEvent struct {
	Kind   VideoEventKind
	Handle string
	Err    error
}

// Device is the platform camera.
type Device interface {
	// StartPhoto captures one still image and returns its media handle.
	StartPhoto(ctx context.Context) (string, error)
	// StartVideo begins recording. The channel emits Started, then exactly
	// one Finalized, then closes.
	StartVideo(ctx context.Context) (<-chan VideoEvent, error)
	// StopVideo asks the active recording to finalize.
	StopVideo() error
}

// Opener reads a media handle into bytes.
type Opener interface {
	Open(handle string) (io.ReadCloser, error)
}

// FileOpener resolves file:// handles and plain paths on the local filesystem.
type FileOpener struct{}

func (FileOpener) Open(handle string) (io.ReadCloser, error) {
	return os.Open(strings.TrimPrefix(handle, "file://"))
}
