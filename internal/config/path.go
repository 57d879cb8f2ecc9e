package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "vcinteract", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "vcinteract", "config.jsonc"), nil
}

// ResolveCacheDir returns the directory used for temp media copies.
func ResolveCacheDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.Capture.CacheDir); dir != "" {
		return dir, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); xdg != "" {
		return filepath.Join(xdg, "vcinteract"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for cache dir")
	}
	return filepath.Join(home, ".cache", "vcinteract"), nil
}

// ResolveMediaDir returns the directory capture commands write their outputs to.
func ResolveMediaDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.Capture.MediaDir); dir != "" {
		return dir, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "vcinteract", "media"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for media dir")
	}
	return filepath.Join(home, ".local", "state", "vcinteract", "media"), nil
}
