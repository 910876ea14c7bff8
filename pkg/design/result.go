package design

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Result is a stored design blueprint: prompt material plus the suggested
// tools, triggers, connectors, channels and use-case flows that the adoption
// wizard narrows down and turns into a persona.
type Result struct {
	ServiceFlow        []string           `json:"service_flow,omitempty"`
	StructuredPrompt   *StructuredPrompt  `json:"structured_prompt,omitempty"`
	SuggestedTools     []string           `json:"suggested_tools,omitempty"`
	SuggestedTriggers  []SuggestedTrigger `json:"suggested_triggers,omitempty"`
	FullPromptMarkdown string             `json:"full_prompt_markdown,omitempty"`
	Summary            string             `json:"summary,omitempty"`

	SuggestedConnectors           []SuggestedConnector  `json:"suggested_connectors,omitempty"`
	SuggestedNotificationChannels []NotificationChannel `json:"suggested_notification_channels,omitempty"`
	SuggestedEventSubscriptions   []EventSubscription   `json:"suggested_event_subscriptions,omitempty"`
	UseCaseFlows                  []UseCaseFlow         `json:"use_case_flows,omitempty"`
}

type StructuredPrompt struct {
	Identity       string          `json:"identity,omitempty"`
	Instructions   string          `json:"instructions,omitempty"`
	ToolGuidance   string          `json:"toolGuidance,omitempty"`
	Examples       string          `json:"examples,omitempty"`
	ErrorHandling  string          `json:"errorHandling,omitempty"`
	WebSearch      string          `json:"webSearch,omitempty"`
	CustomSections []CustomSection `json:"customSections,omitempty"`
}

type CustomSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SuggestedTrigger struct {
	TriggerType string         `json:"trigger_type"`
	Config      map[string]any `json:"config,omitempty"`
	Description string         `json:"description,omitempty"`
}

type CredentialField struct {
	Key         string `json:"key"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	HelpText    string `json:"helpText,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type SuggestedConnector struct {
	Name              string            `json:"name"`
	Label             string            `json:"label,omitempty"`
	AuthType          string            `json:"auth_type,omitempty"`
	CredentialFields  []CredentialField `json:"credential_fields,omitempty"`
	SetupInstructions string            `json:"setup_instructions,omitempty"`
	RelatedTools      []string          `json:"related_tools,omitempty"`
	// Indices into the unfiltered SuggestedTriggers slice.
	RelatedTriggers []int  `json:"related_triggers,omitempty"`
	APIBaseURL      string `json:"api_base_url,omitempty"`
}

type NotificationChannel struct {
	Type              string            `json:"type"`
	Description       string            `json:"description,omitempty"`
	RequiredConnector string            `json:"required_connector,omitempty"`
	ConfigHints       map[string]string `json:"config_hints,omitempty"`
}

type EventSubscription struct {
	EventType   string `json:"event_type"`
	Description string `json:"description,omitempty"`
}

type UseCaseFlow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Nodes       []FlowNode `json:"nodes,omitempty"`
	Edges       []FlowEdge `json:"edges,omitempty"`
}

type FlowNode struct {
	ID           string `json:"id"`
	Type         string `json:"type,omitempty"`
	Label        string `json:"label,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Connector    string `json:"connector,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type FlowEdge struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Label   string `json:"label,omitempty"`
	Variant string `json:"variant,omitempty"`
}

func ParseResult(raw string) (*Result, error) {
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, errors.Wrap(err, "parse design result")
	}
	return &res, nil
}

func (r *Result) MarshalString() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, "marshal design result")
	}
	return string(b), nil
}
