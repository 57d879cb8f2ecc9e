package config

import (
	"fmt"
	"strings"
)

// Parse reads configuration content as JSONC.
//
// Empty content yields the validated base config. YAML files are routed
// through Load by extension rather than by sniffing.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		line := 1 + strings.Count(content[:strings.Index(content, trimmed[:1])], "\n")
		return Config{}, nil, fmt.Errorf("line %d: expected JSONC object", line)
	}
	return parseJSONC(content, base)
}
