package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// filePayload is the on-disk shape shared by the JSONC and YAML decoders.
// Pointer fields distinguish "unset" from zero values.
type filePayload struct {
	Server      *fileServer      `json:"server" yaml:"server"`
	Capture     *fileCapture     `json:"capture" yaml:"capture"`
	Recognition *fileRecognition `json:"recognition" yaml:"recognition"`
	Speech      *fileSpeech      `json:"speech" yaml:"speech"`
	Indicator   *fileIndicator   `json:"indicator" yaml:"indicator"`
	Metrics     *fileMetrics     `json:"metrics" yaml:"metrics"`
	Debug       *fileDebug       `json:"debug" yaml:"debug"`
}

type fileServer struct {
	BaseURL                  *string `json:"base_url" yaml:"base_url"`
	CallTimeoutMS            *int    `json:"call_timeout_ms" yaml:"call_timeout_ms"`
	ConnectTimeoutMS         *int    `json:"connect_timeout_ms" yaml:"connect_timeout_ms"`
	ReadTimeoutMS            *int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	WriteTimeoutMS           *int    `json:"write_timeout_ms" yaml:"write_timeout_ms"`
	MaxIdleConns             *int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleTimeoutMS            *int    `json:"idle_timeout_ms" yaml:"idle_timeout_ms"`
	RetryOnConnectionFailure *bool   `json:"retry_on_connection_failure" yaml:"retry_on_connection_failure"`
	VideoFPS                 *int    `json:"video_fps" yaml:"video_fps"`
}

type fileCapture struct {
	PhotoCmd     *string `json:"photo_cmd" yaml:"photo_cmd"`
	VideoCmd     *string `json:"video_cmd" yaml:"video_cmd"`
	MediaDir     *string `json:"media_dir" yaml:"media_dir"`
	CacheDir     *string `json:"cache_dir" yaml:"cache_dir"`
	VideoLimitMS *int    `json:"video_limit_ms" yaml:"video_limit_ms"`
	BufferSize   *int    `json:"buffer_size" yaml:"buffer_size"`
}

type fileRecognition struct {
	RivaGRPC             *string     `json:"riva_grpc" yaml:"riva_grpc"`
	LanguageCode         *string     `json:"language_code" yaml:"language_code"`
	Model                *string     `json:"model" yaml:"model"`
	AutomaticPunctuation *bool       `json:"automatic_punctuation" yaml:"automatic_punctuation"`
	Input                *string     `json:"input" yaml:"input"`
	FallbackInput        *string     `json:"fallback_input" yaml:"fallback_input"`
	MaxListenMS          *int        `json:"max_listen_ms" yaml:"max_listen_ms"`
	SilenceThreshold     *float64    `json:"silence_threshold" yaml:"silence_threshold"`
	Primary              *fileWindow `json:"primary" yaml:"primary"`
	Fallback             *fileWindow `json:"fallback" yaml:"fallback"`
	FallbackCmd          *string     `json:"fallback_cmd" yaml:"fallback_cmd"`
}

type fileWindow struct {
	MinMS           *int `json:"min_ms" yaml:"min_ms"`
	SilenceMS       *int `json:"silence_ms" yaml:"silence_ms"`
	MaxAlternatives *int `json:"max_alternatives" yaml:"max_alternatives"`
}

type fileSpeech struct {
	Cmd       *string `json:"cmd" yaml:"cmd"`
	ChunkSize *int    `json:"chunk_size" yaml:"chunk_size"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable" yaml:"enable"`
	DesktopAppName *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable" yaml:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileMetrics struct {
	Listen *string `json:"listen" yaml:"listen"`
}

type fileDebug struct {
	Verbose *bool `json:"verbose" yaml:"verbose"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload filePayload
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	return payload.materialize(base)
}

func (payload filePayload) materialize(base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload filePayload) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if s := payload.Server; s != nil {
		setString(&cfg.Server.BaseURL, s.BaseURL)
		setInt(&cfg.Server.CallTimeoutMS, s.CallTimeoutMS)
		setInt(&cfg.Server.ConnectTimeoutMS, s.ConnectTimeoutMS)
		setInt(&cfg.Server.ReadTimeoutMS, s.ReadTimeoutMS)
		setInt(&cfg.Server.WriteTimeoutMS, s.WriteTimeoutMS)
		setInt(&cfg.Server.MaxIdleConns, s.MaxIdleConns)
		setInt(&cfg.Server.IdleTimeoutMS, s.IdleTimeoutMS)
		setInt(&cfg.Server.VideoFPS, s.VideoFPS)
		if s.RetryOnConnectionFailure != nil {
			cfg.Server.RetryOnConnectionFailure = *s.RetryOnConnectionFailure
		}
	}

	if c := payload.Capture; c != nil {
		if err := setCommand(&cfg.Capture.PhotoCmd, c.PhotoCmd, "capture.photo_cmd"); err != nil {
			return nil, err
		}
		if err := setCommand(&cfg.Capture.VideoCmd, c.VideoCmd, "capture.video_cmd"); err != nil {
			return nil, err
		}
		setString(&cfg.Capture.MediaDir, c.MediaDir)
		setString(&cfg.Capture.CacheDir, c.CacheDir)
		setInt(&cfg.Capture.VideoLimitMS, c.VideoLimitMS)
		setInt(&cfg.Capture.BufferSize, c.BufferSize)
		if c.VideoLimitMS != nil && *c.VideoLimitMS > 5000 {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("capture.video_limit_ms=%d exceeds the 5000ms clip length the server expects", *c.VideoLimitMS)})
		}
	}

	if r := payload.Recognition; r != nil {
		setString(&cfg.Recognition.RivaGRPC, r.RivaGRPC)
		setString(&cfg.Recognition.LanguageCode, r.LanguageCode)
		setString(&cfg.Recognition.Model, r.Model)
		setString(&cfg.Recognition.Input, r.Input)
		setString(&cfg.Recognition.FallbackInput, r.FallbackInput)
		setInt(&cfg.Recognition.MaxListenMS, r.MaxListenMS)
		if r.AutomaticPunctuation != nil {
			cfg.Recognition.AutomaticPunctuation = *r.AutomaticPunctuation
		}
		if r.SilenceThreshold != nil {
			cfg.Recognition.SilenceThreshold = *r.SilenceThreshold
		}
		r.Primary.applyTo(&cfg.Recognition.Primary)
		r.Fallback.applyTo(&cfg.Recognition.Fallback)
		if err := setCommand(&cfg.Recognition.FallbackCmd, r.FallbackCmd, "recognition.fallback_cmd"); err != nil {
			return nil, err
		}
	}

	if s := payload.Speech; s != nil {
		if err := setCommand(&cfg.Speech.Cmd, s.Cmd, "speech.cmd"); err != nil {
			return nil, err
		}
		setInt(&cfg.Speech.ChunkSize, s.ChunkSize)
	}

	if i := payload.Indicator; i != nil {
		if i.Enable != nil {
			cfg.Indicator.Enable = *i.Enable
		}
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		if i.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *i.SoundEnable
		}
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if payload.Metrics != nil {
		setString(&cfg.Metrics.Listen, payload.Metrics.Listen)
	}

	if payload.Debug != nil && payload.Debug.Verbose != nil {
		cfg.Debug.Verbose = *payload.Debug.Verbose
	}

	return warnings, nil
}

func (w *fileWindow) applyTo(dst *ListenWindow) {
	if w == nil {
		return
	}
	setInt(&dst.MinMS, w.MinMS)
	setInt(&dst.SilenceMS, w.SilenceMS)
	setInt(&dst.MaxAlternatives, w.MaxAlternatives)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setCommand(dst *CommandConfig, raw *string, key string) error {
	if raw == nil {
		return nil
	}
	argv, err := parseArgv(*raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *raw, Argv: argv}
	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
