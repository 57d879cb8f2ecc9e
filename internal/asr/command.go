package asr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rbright/vcinteract/internal/command"
	"github.com/rbright/vcinteract/internal/logging"
	"github.com/rbright/vcinteract/internal/recognition"
)

// CommandEngine runs an external recognizer that prints one alternative per
// stdout line. Placeholders {min_ms}, {silence_ms}, and {max_alternatives}
// are expanded from the listening params.
type CommandEngine struct {
	logger *slog.Logger
	argv   []string
}

func NewCommandEngine(logger *slog.Logger, argv []string) *CommandEngine {
	return &CommandEngine{logger: logging.OrDiscard(logger), argv: argv}
}

func (e *CommandEngine) Available() bool {
	if e == nil || len(e.argv) == 0 {
		return false
	}
	_, err := command.Available(e.argv)
	return err == nil
}

func (e *CommandEngine) Listen(ctx context.Context, params recognition.Params) (<-chan recognition.Event, error) {
	argv := command.Expand(e.argv, map[string]string{
		"min_ms":           strconv.FormatInt(params.MinInput.Milliseconds(), 10),
		"silence_ms":       strconv.FormatInt(params.Silence.Milliseconds(), 10),
		"max_alternatives": strconv.Itoa(params.MaxAlternatives),
	})
	if _, err := command.Available(argv); err != nil {
		return nil, err
	}

	events := make(chan recognition.Event, 2)
	go func() {
		defer close(events)
		events <- recognition.Event{Kind: recognition.EventReady}

		out, err := command.Run(ctx, argv, "")
		if err != nil {
			code := recognition.CodeClient
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = recognition.CodeAudio
			}
			e.logger.Error("fallback recognizer command failed", "error", err.Error())
			events <- recognition.Event{Kind: recognition.EventError, Code: code, Err: err}
			return
		}

		alternatives := parseAlternatives(out, params.MaxAlternatives)
		if len(alternatives) == 0 {
			events <- recognition.Event{Kind: recognition.EventNoMatch}
			return
		}
		events <- recognition.Event{Kind: recognition.EventResult, Alternatives: alternatives}
	}()
	return events, nil
}

func parseAlternatives(out []byte, limit int) []string {
	var alternatives []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		alternatives = append(alternatives, line)
		if limit > 0 && len(alternatives) == limit {
			break
		}
	}
	return alternatives
}
