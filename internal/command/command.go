// Package command runs configured external programs (camera, speech, and
// recognition helpers) with optional stdin and placeholder expansion.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyArgv is returned when a command has no program to run.
var ErrEmptyArgv = errors.New("command argv cannot be empty")

// Expand replaces {name} placeholders in argv with vars[name].
func Expand(argv []string, vars map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		for name, value := range vars {
			arg = strings.ReplaceAll(arg, "{"+name+"}", value)
		}
		out[i] = arg
	}
	return out
}

// Run executes argv, writes input to stdin when non-empty, and returns stdout.
// Stderr is folded into the returned error.
func Run(ctx context.Context, argv []string, input string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyArgv
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return nil, fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("wait for %s: %w: %s", argv[0], err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return stdout.Bytes(), nil
}

// Available reports whether argv[0] resolves on PATH (or as a path).
func Available(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", ErrEmptyArgv
	}
	return exec.LookPath(argv[0])
}
