package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty base url", mutate: func(c *Config) { c.Server.BaseURL = "" }, wantErr: "server.base_url"},
		{name: "relative base url", mutate: func(c *Config) { c.Server.BaseURL = "/api/" }, wantErr: "absolute"},
		{name: "zero call timeout", mutate: func(c *Config) { c.Server.CallTimeoutMS = 0 }, wantErr: "call_timeout_ms"},
		{name: "zero idle conns", mutate: func(c *Config) { c.Server.MaxIdleConns = 0 }, wantErr: "max_idle_conns"},
		{name: "negative fps", mutate: func(c *Config) { c.Server.VideoFPS = -1 }, wantErr: "video_fps"},
		{name: "empty photo cmd", mutate: func(c *Config) { c.Capture.PhotoCmd = CommandConfig{} }, wantErr: "photo_cmd"},
		{name: "video cmd without placeholder", mutate: func(c *Config) {
			c.Capture.VideoCmd = CommandConfig{Raw: "rec out.mp4", Argv: []string{"rec", "out.mp4"}}
		}, wantErr: "{output}"},
		{name: "zero video limit", mutate: func(c *Config) { c.Capture.VideoLimitMS = 0 }, wantErr: "video_limit_ms"},
		{name: "zero buffer", mutate: func(c *Config) { c.Capture.BufferSize = 0 }, wantErr: "buffer_size"},
		{name: "riva without port", mutate: func(c *Config) { c.Recognition.RivaGRPC = "localhost" }, wantErr: "host:port"},
		{name: "empty language", mutate: func(c *Config) { c.Recognition.LanguageCode = "" }, wantErr: "language_code"},
		{name: "silence threshold out of range", mutate: func(c *Config) { c.Recognition.SilenceThreshold = 1.5 }, wantErr: "silence_threshold"},
		{name: "zero alternatives", mutate: func(c *Config) { c.Recognition.Primary.MaxAlternatives = 0 }, wantErr: "max_alternatives"},
		{name: "listen cap below min", mutate: func(c *Config) { c.Recognition.MaxListenMS = 1000 }, wantErr: "max_listen_ms"},
		{name: "fallback cmd raw but empty argv", mutate: func(c *Config) {
			c.Recognition.FallbackCmd = CommandConfig{Raw: "whisper"}
		}, wantErr: "fallback_cmd"},
		{name: "empty speech cmd", mutate: func(c *Config) { c.Speech.Cmd = CommandConfig{} }, wantErr: "speech.cmd"},
		{name: "zero chunk size", mutate: func(c *Config) { c.Speech.ChunkSize = 0 }, wantErr: "chunk_size"},
		{name: "missing app name", mutate: func(c *Config) { c.Indicator.DesktopAppName = " " }, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "bad metrics listen", mutate: func(c *Config) { c.Metrics.Listen = "9464" }, wantErr: "metrics.listen"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnMissingTrailingSlash(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "http://127.0.0.1:8000"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "trailing")
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"VCINTERACT_RIVA_GRPC":      "10.0.0.2:50051",
		"VCINTERACT_SPEECH_CMD":     "say -v Alex",
		"VCINTERACT_VIDEO_LIMIT_MS": "3000",
		"VCINTERACT_DEBUG":          "1",
		"VCINTERACT_SERVER_URL":     "   ",
	}
	cfg := Default()
	applied, err := ApplyEnv(&cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"VCINTERACT_RIVA_GRPC", "VCINTERACT_SPEECH_CMD", "VCINTERACT_VIDEO_LIMIT_MS", "VCINTERACT_DEBUG"}, applied)
	require.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
	require.Equal(t, "10.0.0.2:50051", cfg.Recognition.RivaGRPC)
	require.Equal(t, []string{"say", "-v", "Alex"}, cfg.Speech.Cmd.Argv)
	require.Equal(t, 3000, cfg.Capture.VideoLimitMS)
	require.True(t, cfg.Debug.Verbose)
}

func TestApplyEnvRejectsBadInteger(t *testing.T) {
	cfg := Default()
	_, err := ApplyEnv(&cfg, func(key string) (string, bool) {
		if key == "VCINTERACT_VIDEO_LIMIT_MS" {
			return "five", true
		}
		return "", false
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "VCINTERACT_VIDEO_LIMIT_MS")
}
