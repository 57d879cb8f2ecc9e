package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/vcinteract/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "unix:path=/run/user/1000/bus")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.HasPrefix(v, "unix:") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake-tts"), []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-tts", "--stdin"}, "speech.cmd")
	require.True(t, check.Pass)
	require.Equal(t, "speech.cmd", check.Name)
	require.Contains(t, check.Message, "fake-tts found at")

	check = checkCommand(nil, "capture.photo_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")

	check = checkCommand([]string{"definitely-not-a-real-binary"}, "capture.video_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	check := checkServer(context.Background(), server.URL+"/")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 404")

	check = checkServer(context.Background(), "http://127.0.0.1:1/")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckRivaHealthServing(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, health.NewServer())
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	check := checkRivaHealth(context.Background(), lis.Addr().String())
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "serving at")
}

func TestCheckRivaHealthNotServing(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	check := checkRivaHealth(context.Background(), lis.Addr().String())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "NOT_SERVING")
}

func TestCheckRivaHealthWithoutHealthService(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	check := checkRivaHealth(context.Background(), lis.Addr().String())
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "no health service")
}

func TestCheckRivaHealthUnreachable(t *testing.T) {
	check := checkRivaHealth(context.Background(), "127.0.0.1:1")
	require.False(t, check.Pass)
	require.Equal(t, "riva.health", check.Name)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default().Recognition)
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestRunIncludesOptionalChecks(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "")

	cfg := config.Default()
	cfg.Server.BaseURL = "http://127.0.0.1:1/"
	cfg.Recognition.RivaGRPC = "127.0.0.1:1"
	cfg.Recognition.FallbackCmd = config.CommandConfig{Raw: "fake-asr", Argv: []string{"fake-asr"}}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.False(t, report.OK())

	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{
		"config",
		"capture.photo_cmd",
		"capture.video_cmd",
		"speech.cmd",
		"recognition.fallback_cmd",
		"DBUS_SESSION_BUS_ADDRESS",
		"audio.device",
		"riva.health",
		"server",
	}, names)

	cfg.Indicator.Enable = false
	cfg.Recognition.FallbackCmd = config.CommandConfig{}
	report = Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	for _, check := range report.Checks {
		require.NotEqual(t, "recognition.fallback_cmd", check.Name)
		require.NotEqual(t, "DBUS_SESSION_BUS_ADDRESS", check.Name)
	}
}
