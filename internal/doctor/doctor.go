// Package doctor runs runtime readiness diagnostics for config, tools, audio,
// Riva, and the interaction server.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/rbright/vcinteract/internal/audio"
	"github.com/rbright/vcinteract/internal/command"
	"github.com/rbright/vcinteract/internal/config"
	"github.com/rbright/vcinteract/internal/riva"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", loaded.Path),
	}}

	checks = append(checks,
		checkCommand(cfg.Capture.PhotoCmd.Argv, "capture.photo_cmd"),
		checkCommand(cfg.Capture.VideoCmd.Argv, "capture.video_cmd"),
		checkCommand(cfg.Speech.Cmd.Argv, "speech.cmd"),
	)
	if len(cfg.Recognition.FallbackCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Recognition.FallbackCmd.Argv, "recognition.fallback_cmd"))
	}

	if cfg.Indicator.Enable {
		checks = append(checks, checkEnv("DBUS_SESSION_BUS_ADDRESS", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "session bus available for notifications", "DBUS_SESSION_BUS_ADDRESS is empty"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Recognition))
	checks = append(checks, checkRivaHealth(ctx, cfg.Recognition.RivaGRPC))
	checks = append(checks, checkServer(ctx, cfg.Server.BaseURL))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv[0] is runnable.
func checkCommand(argv []string, name string) Check {
	path, err := command.Available(argv)
	if errors.Is(err, command.ErrEmptyArgv) {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s found at %s", argv[0], path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.RecognitionConfig) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.FallbackInput)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRivaHealth dials Riva and queries the gRPC health service.
func checkRivaHealth(ctx context.Context, endpoint string) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := riva.Dial(ctx, riva.Config{Endpoint: endpoint, DialTimeout: probeTimeout})
	if err != nil {
		return Check{Name: "riva.health", Pass: false, Message: err.Error()}
	}
	defer client.Close()

	serving, err := client.Health(ctx, "")
	if status.Code(err) == codes.Unimplemented {
		return Check{Name: "riva.health", Pass: true, Message: fmt.Sprintf("reachable at %s (no health service)", endpoint)}
	}
	if err != nil {
		return Check{Name: "riva.health", Pass: false, Message: fmt.Sprintf("health check failed: %v", err)}
	}
	if serving != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "riva.health", Pass: false, Message: fmt.Sprintf("%s at %s", serving, endpoint)}
	}
	return Check{Name: "riva.health", Pass: true, Message: fmt.Sprintf("serving at %s", endpoint)}
}

// checkServer confirms the interaction server answers HTTP at all. Any status
// code passes; only transport failures fail.
func checkServer(ctx context.Context, baseURL string) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return Check{Name: "server", Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "server", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	return Check{Name: "server", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, baseURL)}
}
