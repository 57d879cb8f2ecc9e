package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\n"+body), 0o755))
	return path
}

func TestCommandDevicePhotoWritesMediaDir(t *testing.T) {
	script := writeScript(t, "photo.sh", "printf 'jpeg-bytes' > \"$1\"\n")
	media := filepath.Join(t.TempDir(), "media")
	device := NewCommandDevice(nil, []string{script, "{output}"}, nil, media)
	device.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	handle, err := device.StartPhoto(context.Background())
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(media, "image_20260304_050607.jpg"), handle)

	data, err := os.ReadFile(strings.TrimPrefix(handle, "file://"))
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

func TestCommandDevicePhotoFailsOnEmptyOutput(t *testing.T) {
	script := writeScript(t, "photo.sh", ": > \"$1\"\n")
	device := NewCommandDevice(nil, []string{script, "{output}"}, nil, t.TempDir())

	_, err := device.StartPhoto(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestCommandDeviceVideoStopsOnInterrupt(t *testing.T) {
	script := writeScript(t, "video.sh", `out="$1"
trap 'printf mp4 > "$out"; exit 255' INT
while true; do sleep 0.05; done
`)
	media := t.TempDir()
	device := NewCommandDevice(nil, nil, []string{script, "{output}"}, media)
	store := artifact.NewStore(nil, nil)
	c := NewCoordinator(nil, device, nil, store, Options{CacheDir: t.TempDir(), VideoLimit: 300 * time.Millisecond})

	a, err := c.CaptureVideo(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, artifact.KindVideo, a.Kind)

	data, err := os.ReadFile(a.LocalPath)
	require.NoError(t, err)
	require.Equal(t, "mp4", string(data))
	require.True(t, strings.HasPrefix(a.SourceHandle, "file://"+media))
}

func TestCommandDeviceVideoFailureWithoutStop(t *testing.T) {
	script := writeScript(t, "video.sh", "exit 4\n")
	device := NewCommandDevice(nil, nil, []string{script, "{output}"}, t.TempDir())

	events, err := device.StartVideo(context.Background())
	require.NoError(t, err)

	var last VideoEvent
	for ev := range events {
		last = ev
	}
	require.Equal(t, VideoFinalized, last.Kind)
	require.Error(t, last.Err)
	require.NoError(t, device.StopVideo())
}
