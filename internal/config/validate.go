package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.Server.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("server.base_url must not be empty")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("server.base_url must be an absolute http(s) URL")
	}
	if !strings.HasSuffix(u.Path, "/") {
		warnings = append(warnings, Warning{Message: "server.base_url has no trailing '/'; endpoint paths are appended after one"})
	}
	for name, v := range map[string]int{
		"server.call_timeout_ms":    cfg.Server.CallTimeoutMS,
		"server.connect_timeout_ms": cfg.Server.ConnectTimeoutMS,
		"server.read_timeout_ms":    cfg.Server.ReadTimeoutMS,
		"server.write_timeout_ms":   cfg.Server.WriteTimeoutMS,
		"server.idle_timeout_ms":    cfg.Server.IdleTimeoutMS,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("%s must be > 0", name)
		}
	}
	if cfg.Server.MaxIdleConns <= 0 {
		return nil, fmt.Errorf("server.max_idle_conns must be > 0")
	}
	if cfg.Server.VideoFPS < 0 {
		return nil, fmt.Errorf("server.video_fps must be >= 0")
	}

	if len(cfg.Capture.PhotoCmd.Argv) == 0 {
		return nil, fmt.Errorf("capture.photo_cmd must not be empty")
	}
	if len(cfg.Capture.VideoCmd.Argv) == 0 {
		return nil, fmt.Errorf("capture.video_cmd must not be empty")
	}
	if !hasOutputPlaceholder(cfg.Capture.PhotoCmd.Argv) {
		return nil, fmt.Errorf("capture.photo_cmd must contain the {output} placeholder")
	}
	if !hasOutputPlaceholder(cfg.Capture.VideoCmd.Argv) {
		return nil, fmt.Errorf("capture.video_cmd must contain the {output} placeholder")
	}
	if cfg.Capture.VideoLimitMS <= 0 {
		return nil, fmt.Errorf("capture.video_limit_ms must be > 0")
	}
	if cfg.Capture.BufferSize <= 0 {
		return nil, fmt.Errorf("capture.buffer_size must be > 0")
	}

	rec := cfg.Recognition
	if strings.TrimSpace(rec.RivaGRPC) == "" {
		return nil, fmt.Errorf("recognition.riva_grpc must not be empty")
	}
	if _, _, err := net.SplitHostPort(rec.RivaGRPC); err != nil {
		return nil, fmt.Errorf("recognition.riva_grpc must be host:port: %w", err)
	}
	if strings.TrimSpace(rec.LanguageCode) == "" {
		return nil, fmt.Errorf("recognition.language_code must not be empty")
	}
	if rec.SilenceThreshold <= 0 || rec.SilenceThreshold >= 1 {
		return nil, fmt.Errorf("recognition.silence_threshold must be between 0 and 1")
	}
	for name, w := range map[string]ListenWindow{"primary": rec.Primary, "fallback": rec.Fallback} {
		if w.MinMS < 0 || w.SilenceMS <= 0 {
			return nil, fmt.Errorf("recognition.%s windows must be positive", name)
		}
		if w.MaxAlternatives <= 0 {
			return nil, fmt.Errorf("recognition.%s.max_alternatives must be > 0", name)
		}
	}
	if rec.MaxListenMS < rec.Primary.MinMS || rec.MaxListenMS < rec.Fallback.MinMS {
		return nil, fmt.Errorf("recognition.max_listen_ms must be >= every min_ms")
	}
	if rec.FallbackCmd.Raw != "" && len(rec.FallbackCmd.Argv) == 0 {
		return nil, fmt.Errorf("recognition.fallback_cmd is configured but empty")
	}

	if len(cfg.Speech.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("speech.cmd must not be empty")
	}
	if cfg.Speech.ChunkSize <= 0 {
		return nil, fmt.Errorf("speech.chunk_size must be > 0")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	return warnings, nil
}

func hasOutputPlaceholder(argv []string) bool {
	for _, arg := range argv {
		if strings.Contains(arg, "{output}") {
			return true
		}
	}
	return false
}
