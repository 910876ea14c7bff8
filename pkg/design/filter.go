package design

import (
	"regexp"
	"sort"
	"strings"
)

// Filter keeps only the selected entities of res, preserving their original
// relative order. Selection keys that do not exist in res are ignored.
// Prompt material (service flow, structured prompt, markdown, summary) is
// carried over untouched.
func Filter(res Result, sel Selection) Result {
	out := Result{
		ServiceFlow:        append([]string(nil), res.ServiceFlow...),
		StructuredPrompt:   res.StructuredPrompt.clone(),
		FullPromptMarkdown: res.FullPromptMarkdown,
		Summary:            res.Summary,
	}
	for i, t := range res.SuggestedTools {
		if sel.Tools[i] {
			out.SuggestedTools = append(out.SuggestedTools, t)
		}
	}
	for i, t := range res.SuggestedTriggers {
		if sel.Triggers[i] {
			out.SuggestedTriggers = append(out.SuggestedTriggers, t.clone())
		}
	}
	for i, c := range res.SuggestedConnectors {
		if sel.Connectors[i] {
			out.SuggestedConnectors = append(out.SuggestedConnectors, c.clone())
		}
	}
	for i, ch := range res.SuggestedNotificationChannels {
		if sel.Channels[i] {
			out.SuggestedNotificationChannels = append(out.SuggestedNotificationChannels, ch.clone())
		}
	}
	for i, s := range res.SuggestedEventSubscriptions {
		if sel.Subscriptions[i] {
			out.SuggestedEventSubscriptions = append(out.SuggestedEventSubscriptions, s)
		}
	}
	for _, f := range res.UseCaseFlows {
		if sel.UseCases[f.ID] {
			out.UseCaseFlows = append(out.UseCaseFlows, f.clone())
		}
	}
	return out
}

// MergeTriggerConfigs overlays user-entered settings onto triggers, keyed by
// the trigger's position in the unfiltered result. Call before Filter so the
// indices still line up.
func MergeTriggerConfigs(res Result, configs map[int]map[string]any) Result {
	if len(configs) == 0 {
		return res
	}
	out := res
	out.SuggestedTriggers = make([]SuggestedTrigger, len(res.SuggestedTriggers))
	for i, t := range res.SuggestedTriggers {
		t = t.clone()
		if cfg, ok := configs[i]; ok {
			if t.Config == nil {
				t.Config = map[string]any{}
			}
			for k, v := range cfg {
				t.Config[k] = v
			}
		}
		out.SuggestedTriggers[i] = t
	}
	return out
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Placeholders collects the {{name}} placeholders appearing in any text
// field of res, sorted and deduplicated.
func Placeholders(res Result) []string {
	seen := map[string]bool{}
	res.mapText(func(s string) string {
		for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
			seen[m[1]] = true
		}
		return s
	})
	var names []string
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Substitute replaces {{name}} placeholders in every text field of res with
// the given values. Placeholders without a value are left intact.
func Substitute(res Result, values map[string]string) Result {
	if len(values) == 0 {
		return res
	}
	return res.mapText(func(s string) string {
		if !strings.Contains(s, "{{") {
			return s
		}
		return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
			name := placeholderRe.FindStringSubmatch(m)[1]
			if v, ok := values[name]; ok {
				return v
			}
			return m
		})
	})
}

// mapText returns a copy of res with f applied to every human-readable text
// field. Identifiers (entity names, ids, types) are left alone.
func (r Result) mapText(f func(string) string) Result {
	out := r

	out.ServiceFlow = make([]string, len(r.ServiceFlow))
	for i, s := range r.ServiceFlow {
		out.ServiceFlow[i] = f(s)
	}
	if r.StructuredPrompt != nil {
		sp := r.StructuredPrompt.clone()
		sp.Identity = f(sp.Identity)
		sp.Instructions = f(sp.Instructions)
		sp.ToolGuidance = f(sp.ToolGuidance)
		sp.Examples = f(sp.Examples)
		sp.ErrorHandling = f(sp.ErrorHandling)
		sp.WebSearch = f(sp.WebSearch)
		for i := range sp.CustomSections {
			sp.CustomSections[i].Title = f(sp.CustomSections[i].Title)
			sp.CustomSections[i].Content = f(sp.CustomSections[i].Content)
		}
		out.StructuredPrompt = sp
	}
	out.FullPromptMarkdown = f(r.FullPromptMarkdown)
	out.Summary = f(r.Summary)

	out.SuggestedTools = append([]string(nil), r.SuggestedTools...)

	out.SuggestedTriggers = make([]SuggestedTrigger, len(r.SuggestedTriggers))
	for i, t := range r.SuggestedTriggers {
		t = t.clone()
		t.Description = f(t.Description)
		for k, v := range t.Config {
			if s, ok := v.(string); ok {
				t.Config[k] = f(s)
			}
		}
		out.SuggestedTriggers[i] = t
	}

	out.SuggestedConnectors = make([]SuggestedConnector, len(r.SuggestedConnectors))
	for i, c := range r.SuggestedConnectors {
		c = c.clone()
		c.Label = f(c.Label)
		c.SetupInstructions = f(c.SetupInstructions)
		out.SuggestedConnectors[i] = c
	}

	out.SuggestedNotificationChannels = make([]NotificationChannel, len(r.SuggestedNotificationChannels))
	for i, ch := range r.SuggestedNotificationChannels {
		ch = ch.clone()
		ch.Description = f(ch.Description)
		for k, v := range ch.ConfigHints {
			ch.ConfigHints[k] = f(v)
		}
		out.SuggestedNotificationChannels[i] = ch
	}

	out.SuggestedEventSubscriptions = make([]EventSubscription, len(r.SuggestedEventSubscriptions))
	for i, s := range r.SuggestedEventSubscriptions {
		s.Description = f(s.Description)
		out.SuggestedEventSubscriptions[i] = s
	}

	out.UseCaseFlows = make([]UseCaseFlow, len(r.UseCaseFlows))
	for i, u := range r.UseCaseFlows {
		u = u.clone()
		u.Name = f(u.Name)
		u.Description = f(u.Description)
		for j := range u.Nodes {
			u.Nodes[j].Label = f(u.Nodes[j].Label)
			u.Nodes[j].Detail = f(u.Nodes[j].Detail)
			u.Nodes[j].ErrorMessage = f(u.Nodes[j].ErrorMessage)
		}
		for j := range u.Edges {
			u.Edges[j].Label = f(u.Edges[j].Label)
		}
		out.UseCaseFlows[i] = u
	}

	return out
}

func (p *StructuredPrompt) clone() *StructuredPrompt {
	if p == nil {
		return nil
	}
	out := *p
	out.CustomSections = append([]CustomSection(nil), p.CustomSections...)
	return &out
}

func (t SuggestedTrigger) clone() SuggestedTrigger {
	out := t
	if t.Config != nil {
		out.Config = make(map[string]any, len(t.Config))
		for k, v := range t.Config {
			out.Config[k] = v
		}
	}
	return out
}

func (c SuggestedConnector) clone() SuggestedConnector {
	out := c
	out.CredentialFields = append([]CredentialField(nil), c.CredentialFields...)
	out.RelatedTools = append([]string(nil), c.RelatedTools...)
	out.RelatedTriggers = append([]int(nil), c.RelatedTriggers...)
	return out
}

func (ch NotificationChannel) clone() NotificationChannel {
	out := ch
	if ch.ConfigHints != nil {
		out.ConfigHints = make(map[string]string, len(ch.ConfigHints))
		for k, v := range ch.ConfigHints {
			out.ConfigHints[k] = v
		}
	}
	return out
}

func (u UseCaseFlow) clone() UseCaseFlow {
	out := u
	out.Nodes = append([]FlowNode(nil), u.Nodes...)
	out.Edges = append([]FlowEdge(nil), u.Edges...)
	return out
}
