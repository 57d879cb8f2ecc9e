package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg, envWarnings, envErr := applyEnvAndValidate(base)
			if envErr != nil {
				return Loaded{}, envErr
			}
			return Loaded{
				Path:   resolvedPath,
				Config: cfg,
				Warnings: append([]Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}}, envWarnings...),
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	var (
		cfg      Config
		warnings []Warning
	)
	if isYAMLPath(resolvedPath) {
		cfg, warnings, err = parseYAML(string(content), base)
	} else {
		cfg, warnings, err = Parse(string(content), base)
	}
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	cfg, envWarnings, err := applyEnvAndValidate(cfg)
	if err != nil {
		return Loaded{}, err
	}
	warnings = append(warnings, envWarnings...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: dedupeWarnings(warnings),
		Exists:   true,
	}, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func applyEnvAndValidate(cfg Config) (Config, []Warning, error) {
	applied, err := ApplyEnv(&cfg, os.LookupEnv)
	if err != nil {
		return Config{}, nil, err
	}
	if len(applied) == 0 {
		return cfg, nil, nil
	}
	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, fmt.Errorf("environment override (%s): %w", strings.Join(applied, ", "), err)
	}
	return cfg, warnings, nil
}

func dedupeWarnings(warnings []Warning) []Warning {
	seen := make(map[string]struct{}, len(warnings))
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if _, ok := seen[w.Message]; ok {
			continue
		}
		seen[w.Message] = struct{}{}
		out = append(out, w)
	}
	return out
}
