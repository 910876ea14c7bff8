package design

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultColor = "#8b5cf6"
	DefaultIcon  = "Sparkles"
)

// Draft is the structured output of a completed generation job: a persona
// definition the user can still edit before finalizing.
type Draft struct {
	Name                 string                `json:"name,omitempty"`
	Description          string                `json:"description,omitempty"`
	SystemPrompt         string                `json:"system_prompt"`
	StructuredPrompt     *StructuredPrompt     `json:"structured_prompt,omitempty"`
	Icon                 string                `json:"icon,omitempty"`
	Color                string                `json:"color,omitempty"`
	ModelProfile         string                `json:"model_profile,omitempty"`
	MaxBudgetUSD         *float64              `json:"max_budget_usd,omitempty"`
	MaxTurns             *int                  `json:"max_turns,omitempty"`
	DesignContext        json.RawMessage       `json:"design_context,omitempty"`
	NotificationChannels []NotificationChannel `json:"notification_channels,omitempty"`
	Triggers             []TriggerDraft        `json:"triggers,omitempty"`
	Tools                []ToolDraft           `json:"tools,omitempty"`
	RequiredConnectors   []ConnectorRef        `json:"required_connectors,omitempty"`
}

type TriggerDraft struct {
	TriggerType string         `json:"trigger_type"`
	Config      map[string]any `json:"config,omitempty"`
	Description string         `json:"description,omitempty"`
	UseCaseID   string         `json:"use_case_id,omitempty"`
}

type ToolDraft struct {
	Name                   string          `json:"name"`
	Category               string          `json:"category,omitempty"`
	Description            string          `json:"description,omitempty"`
	RequiresCredentialType string          `json:"requires_credential_type,omitempty"`
	InputSchema            json.RawMessage `json:"input_schema,omitempty"`
	ImplementationGuide    string          `json:"implementation_guide,omitempty"`
}

type ConnectorRef struct {
	Name           string `json:"name"`
	CredentialType string `json:"credential_type,omitempty"`
	HasCredential  bool   `json:"has_credential"`
}

// Normalize fills display defaults so a sparse generator output still renders
// as a usable persona card.
func (d *Draft) Normalize(fallbackName string) {
	if strings.TrimSpace(d.Name) == "" {
		d.Name = fallbackName
	}
	if strings.TrimSpace(d.Color) == "" {
		d.Color = DefaultColor
	}
	if strings.TrimSpace(d.Icon) == "" {
		d.Icon = DefaultIcon
	}
}

func (d *Draft) Validate() error {
	if strings.TrimSpace(d.SystemPrompt) == "" {
		return errors.New("persona draft has an empty system prompt")
	}
	return nil
}

// ParseDraft extracts the first JSON object from free-form generator text and
// decodes it as a Draft. Output wrapped in a top-level "persona" key is
// unwrapped first.
func ParseDraft(text string) (*Draft, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, errors.New("no JSON object found in draft text")
	}
	payload := []byte(raw)
	var probe struct {
		Persona json.RawMessage `json:"persona"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil && len(probe.Persona) > 0 {
		payload = probe.Persona
	}
	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, errors.Wrap(err, "parse persona draft")
	}
	return &d, nil
}

// ExtractJSONObject pulls a JSON document out of generator output that may
// wrap it in prose or markdown fences. Tried in order: the raw text, the
// text with fences stripped, and the span from the first '{' to the last
// '}' of each.
func ExtractJSONObject(input string) (string, bool) {
	candidates := []string{
		input,
		strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(input, "```json", ""), "```", "")),
	}
	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		start := strings.Index(candidate, "{")
		end := strings.LastIndex(candidate, "}")
		if start >= 0 && end > start {
			slice := candidate[start : end+1]
			if json.Valid([]byte(slice)) {
				return slice, true
			}
		}
	}
	return "", false
}
