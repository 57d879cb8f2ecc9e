// Package config resolves, parses, validates, and defaults vcinteract configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by vcinteract.
type Config struct {
	Server      ServerConfig
	Capture     CaptureConfig
	Recognition RecognitionConfig
	Speech      SpeechConfig
	Indicator   IndicatorConfig
	Metrics     MetricsConfig
	Debug       DebugConfig
}

// ServerConfig controls the remote multimodal endpoint and its HTTP transport.
type ServerConfig struct {
	BaseURL                  string
	CallTimeoutMS            int
	ConnectTimeoutMS         int
	ReadTimeoutMS            int
	WriteTimeoutMS           int
	MaxIdleConns             int
	IdleTimeoutMS            int
	RetryOnConnectionFailure bool
	VideoFPS                 int
}

// CaptureConfig controls camera commands and temp-file staging.
type CaptureConfig struct {
	PhotoCmd     CommandConfig
	VideoCmd     CommandConfig
	MediaDir     string
	CacheDir     string
	VideoLimitMS int
	BufferSize   int
}

// RecognitionConfig controls the primary (Riva) and fallback speech engines.
type RecognitionConfig struct {
	RivaGRPC             string
	LanguageCode         string
	Model                string
	AutomaticPunctuation bool
	Input                string
	FallbackInput        string
	MaxListenMS          int
	SilenceThreshold     float64
	Primary              ListenWindow
	Fallback             ListenWindow
	FallbackCmd          CommandConfig
}

// ListenWindow is the endpointing configuration for one recognition path.
type ListenWindow struct {
	MinMS           int
	SilenceMS       int
	MaxAlternatives int
}

// SpeechConfig controls the text-to-speech command and chunk budget.
type SpeechConfig struct {
	Cmd       CommandConfig
	ChunkSize int
}

// IndicatorConfig controls desktop notifications and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// MetricsConfig controls the optional prometheus listener.
type MetricsConfig struct {
	Listen string
}

// DebugConfig controls verbose logging.
type DebugConfig struct {
	Verbose bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Millis converts a millisecond config value into a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
