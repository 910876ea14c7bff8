package design

// Selection records which of a result's suggested entities the user has
// kept. Index sets refer to positions in the unfiltered result; use cases
// are keyed by flow id. Toggling a key flips its membership, so repeated
// toggles are XOR semantics.
type Selection struct {
	Tools         map[int]bool    `json:"tools,omitempty"`
	Triggers      map[int]bool    `json:"triggers,omitempty"`
	Connectors    map[int]bool    `json:"connectors,omitempty"`
	Channels      map[int]bool    `json:"channels,omitempty"`
	Subscriptions map[int]bool    `json:"subscriptions,omitempty"`
	UseCases      map[string]bool `json:"use_cases,omitempty"`
}

func NewSelection() Selection {
	return Selection{
		Tools:         map[int]bool{},
		Triggers:      map[int]bool{},
		Connectors:    map[int]bool{},
		Channels:      map[int]bool{},
		Subscriptions: map[int]bool{},
		UseCases:      map[string]bool{},
	}
}

// SelectAll marks every suggested entity of res as kept.
func SelectAll(res *Result) Selection {
	sel := NewSelection()
	if res == nil {
		return sel
	}
	for i := range res.SuggestedTools {
		sel.Tools[i] = true
	}
	for i := range res.SuggestedTriggers {
		sel.Triggers[i] = true
	}
	for i := range res.SuggestedConnectors {
		sel.Connectors[i] = true
	}
	for i := range res.SuggestedNotificationChannels {
		sel.Channels[i] = true
	}
	for i := range res.SuggestedEventSubscriptions {
		sel.Subscriptions[i] = true
	}
	for _, f := range res.UseCaseFlows {
		sel.UseCases[f.ID] = true
	}
	return sel
}

func (s Selection) Clone() Selection {
	out := NewSelection()
	for k, v := range s.Tools {
		out.Tools[k] = v
	}
	for k, v := range s.Triggers {
		out.Triggers[k] = v
	}
	for k, v := range s.Connectors {
		out.Connectors[k] = v
	}
	for k, v := range s.Channels {
		out.Channels[k] = v
	}
	for k, v := range s.Subscriptions {
		out.Subscriptions[k] = v
	}
	for k, v := range s.UseCases {
		out.UseCases[k] = v
	}
	return out
}

func toggleIndex(set map[int]bool, i int) {
	if set[i] {
		delete(set, i)
		return
	}
	set[i] = true
}

func (s *Selection) ToggleTool(i int)         { toggleIndex(s.Tools, i) }
func (s *Selection) ToggleTrigger(i int)      { toggleIndex(s.Triggers, i) }
func (s *Selection) ToggleConnector(i int)    { toggleIndex(s.Connectors, i) }
func (s *Selection) ToggleChannel(i int)      { toggleIndex(s.Channels, i) }
func (s *Selection) ToggleSubscription(i int) { toggleIndex(s.Subscriptions, i) }

func (s *Selection) ToggleUseCase(id string) {
	if s.UseCases[id] {
		delete(s.UseCases, id)
		return
	}
	s.UseCases[id] = true
}
