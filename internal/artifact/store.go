// Package artifact tracks the single active captured media file and owns
// deletion of its temp copy.
package artifact

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/vcinteract/internal/logging"
)

// Kind identifies the captured media type.
type Kind string

const (
	KindNone  Kind = ""
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Artifact is one captured media file staged in the cache dir.
type Artifact struct {
	Kind         Kind
	LocalPath    string
	SourceHandle string
	CreatedAt    time.Time

	once sync.Once
	err  error
}

// remove deletes the backing file at most once; later calls return the first result.
func (a *Artifact) remove() (bool, error) {
	ran := false
	a.once.Do(func() {
		ran = true
		err := os.Remove(a.LocalPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.err = err
		}
	})
	return ran, a.err
}

// DeleteObserver receives the result of every performed deletion.
type DeleteObserver interface {
	ArtifactDeleted(error)
}

// Store holds at most one active artifact. Every operation runs under one
// mutex so replace-and-delete sequences are atomic relative to each other.
type Store struct {
	logger   *slog.Logger
	observer DeleteObserver

	mu      sync.Mutex
	current *Artifact
}

// NewStore constructs an empty store. observer may be nil.
func NewStore(logger *slog.Logger, observer DeleteObserver) *Store {
	return &Store{logger: logging.OrDiscard(logger), observer: observer}
}

// SetPhoto makes a photo the active artifact, superseding any photo or video.
func (s *Store) SetPhoto(localPath, handle string) *Artifact {
	return s.set(KindPhoto, localPath, handle)
}

// SetVideo makes a video the active artifact, superseding any photo or video.
func (s *Store) SetVideo(localPath, handle string) *Artifact {
	return s.set(KindVideo, localPath, handle)
}

func (s *Store) set(kind Kind, localPath, handle string) *Artifact {
	next := &Artifact{Kind: kind, LocalPath: localPath, SourceHandle: handle, CreatedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.current
	s.current = next
	if previous != nil && previous.LocalPath != localPath {
		s.deleteLocked(previous, "superseded")
	}
	return next
}

// Clear drops the active artifact and deletes its backing file.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	previous := s.current
	s.current = nil
	s.deleteLocked(previous, "cleared")
}

// Release deletes a's backing file once and clears it when still active.
// Releasing an artifact that was already superseded only confirms its deletion.
func (s *Store) Release(a *Artifact) {
	if a == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == a {
		s.current = nil
	}
	s.deleteLocked(a, "released")
}

// Current returns the active artifact, if any.
func (s *Store) Current() (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// Kind returns the active artifact kind or KindNone.
func (s *Store) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return KindNone
	}
	return s.current.Kind
}

func (s *Store) deleteLocked(a *Artifact, reason string) {
	ran, err := a.remove()
	if !ran {
		return
	}
	if s.observer != nil {
		s.observer.ArtifactDeleted(err)
	}
	if err != nil {
		s.logger.Warn("temp media delete failed", "path", a.LocalPath, "kind", string(a.Kind), "reason", reason, "error", err.Error())
		return
	}
	s.logger.Debug("temp media deleted", "path", a.LocalPath, "kind", string(a.Kind), "reason", reason)
}
