package engine

import (
	"fmt"
	"strings"

	"github.com/personakit/adoptctl/pkg/design"
)

const designPreviewLimit = 8000

// buildAdoptPrompt assembles the single-turn adoption prompt. The generator
// either answers with a TRANSFORM_QUESTIONS block (clarification needed) or
// with the persona JSON directly.
func buildAdoptPrompt(req StartRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a senior persona architect. Turn the template design below into a runnable persona definition.

Template name: %s
Design (may be truncated): %s
`, req.TemplateName, truncate(req.Payload, designPreviewLimit))

	if req.PreviousDraft != "" {
		fmt.Fprintf(&b, "\nA previous draft exists. Refine it instead of starting over:\n%s\n", req.PreviousDraft)
	}
	if req.AdjustmentNote != "" {
		fmt.Fprintf(&b, "\nThe user asked for this adjustment:\n%s\n", req.AdjustmentNote)
	}
	if req.AnswersJSON != "" {
		fmt.Fprintf(&b, "\nThe user already answered your clarification questions:\n%s\nDo not ask again; generate the persona now.\n", req.AnswersJSON)
	}

	fmt.Fprintf(&b, `
If the design is complex (external services, several connectors, ambiguous
configuration, or actions with external consequences) and no answers were
provided above, ask 4-8 clarification questions. Output exactly:

%s
[{"id":"q1","question":"...","type":"select","options":["A","B"],"default":"A","context":"why this matters"}]

then STOP. type is one of select, text, boolean; boolean options are
["Yes","No"]; every question needs a unique id. Always cover human-in-the-loop
approval and memory strategy, ordered most critical first.

Otherwise output ONLY the persona as one JSON object (no markdown fences):
{"name":"...","description":"...","system_prompt":"...","structured_prompt":{...},
"icon":"...","color":"...","triggers":[{"trigger_type":"schedule","config":{},"description":"..."}],
"tools":[{"name":"...","category":"...","description":"..."}],
"required_connectors":[{"name":"...","credential_type":"...","has_credential":false}]}
`, design.QuestionsMarker)

	return b.String()
}

// buildContinuePrompt is the follow-up turn sent on an existing generator
// session once the user has answered.
func buildContinuePrompt(answersJSON string) string {
	return fmt.Sprintf(`The user answered your clarification questions:
%s

Generate the full persona now as one JSON object, no markdown fences, no
further questions.`, answersJSON)
}

func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	end := maxBytes
	for end > 0 && !isCharBoundary(s, end) {
		end--
	}
	return s[:end]
}

func isCharBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}
