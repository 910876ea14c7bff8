package engine

import (
	"encoding/json"
	"strings"
)

// LineFilter decides which raw generator lines surface into the job's output
// buffer, optionally rewriting them. Implemented by linejs for scripted
// filtering; SurfaceLine is the built-in default.
type LineFilter interface {
	Surface(line string) (string, bool)
}

// SurfaceLine drops blank lines, full-line JSON (protocol frames), and
// payload fragments that would leak the draft into the visible log.
func SurfaceLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if json.Valid([]byte(trimmed)) {
		return "", false
	}
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) &&
		(strings.Contains(trimmed, `"persona"`) || strings.Contains(trimmed, `"system_prompt"`)) {
		return "", false
	}
	return trimmed, true
}

type defaultLineFilter struct{}

func (defaultLineFilter) Surface(line string) (string, bool) { return SurfaceLine(line) }
