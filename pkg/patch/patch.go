// Package patch applies dotted-key overrides to trigger config maps, so a
// suggested trigger's settings can be edited piecemeal ("schedule.cron",
// "filters.branch") without replacing the whole config object.
package patch

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Values is one trigger's configuration object.
type Values = map[string]any

// Patch is a batch of overrides: unsets run first, then sets.
type Patch struct {
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}

// Apply folds the patch into cfg in place and returns it. Intermediate
// objects are created as needed; a path segment that exists but is not an
// object is an error.
func Apply(cfg Values, p Patch) (Values, error) {
	if cfg == nil {
		cfg = Values{}
	}
	for _, key := range p.Unset {
		if err := unsetDotted(cfg, key); err != nil {
			return nil, err
		}
	}
	for key, value := range p.Set {
		if err := setDotted(cfg, key, value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Merge combines two patches; on key collisions the later patch wins.
func Merge(a, b Patch) Patch {
	out := Patch{
		Set:   map[string]any{},
		Unset: []string{},
	}
	for k, v := range a.Set {
		out.Set[k] = v
	}
	for k, v := range b.Set {
		out.Set[k] = v
	}
	seen := map[string]struct{}{}
	for _, k := range append(append([]string{}, a.Unset...), b.Unset...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Unset = append(out.Unset, k)
	}
	return out
}

// ParseAssignment splits a "dotted.key=value" flag argument. The value is
// decoded as JSON when it parses (numbers, booleans, objects) and kept as a
// plain string otherwise, so cron expressions need no quoting.
func ParseAssignment(arg string) (string, any, error) {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", nil, errors.Errorf("expected key=value, got %q", arg)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return key, raw, nil
	}
	return key, v, nil
}

func setDotted(cfg Values, dotted string, value any) error {
	parts := splitDotted(dotted)
	if len(parts) == 0 {
		return errors.Errorf("empty dotted key")
	}

	current := cfg
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		next, ok := current[part]
		if !ok {
			child := map[string]any{}
			current[part] = child
			current = child
			continue
		}
		asMap, ok := next.(map[string]any)
		if !ok {
			return errors.Errorf("cannot set %q: path segment %q is not an object", dotted, part)
		}
		current = asMap
	}

	current[parts[len(parts)-1]] = value
	return nil
}

func unsetDotted(cfg Values, dotted string) error {
	parts := splitDotted(dotted)
	if len(parts) == 0 {
		return errors.Errorf("empty dotted key")
	}

	current := cfg
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		next, ok := current[part]
		if !ok {
			return nil
		}
		asMap, ok := next.(map[string]any)
		if !ok {
			return errors.Errorf("cannot unset %q: path segment %q is not an object", dotted, part)
		}
		current = asMap
	}
	delete(current, parts[len(parts)-1])
	return nil
}

func splitDotted(dotted string) []string {
	raw := strings.Split(dotted, ".")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
