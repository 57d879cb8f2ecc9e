package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv applies VCINTERACT_* overrides on top of file/default values and
// returns the names of the variables that were applied.
func ApplyEnv(cfg *Config, lookup LookupFunc) ([]string, error) {
	if lookup == nil {
		return nil, nil
	}

	var applied []string
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		applied = append(applied, key)
		return strings.TrimSpace(v), true
	}

	if v, ok := get("VCINTERACT_SERVER_URL"); ok {
		cfg.Server.BaseURL = v
	}
	if v, ok := get("VCINTERACT_RIVA_GRPC"); ok {
		cfg.Recognition.RivaGRPC = v
	}
	if v, ok := get("VCINTERACT_SPEECH_CMD"); ok {
		argv, err := parseArgv(v)
		if err != nil {
			return nil, fmt.Errorf("invalid VCINTERACT_SPEECH_CMD: %w", err)
		}
		cfg.Speech.Cmd = CommandConfig{Raw: v, Argv: argv}
	}
	if v, ok := get("VCINTERACT_VIDEO_LIMIT_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid VCINTERACT_VIDEO_LIMIT_MS %q: %w", v, err)
		}
		cfg.Capture.VideoLimitMS = ms
	}
	if v, ok := get("VCINTERACT_DEBUG"); ok {
		cfg.Debug.Verbose = v == "true" || v == "1"
	}

	return applied, nil
}
