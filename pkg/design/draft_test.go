package design

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDraftFromProseWrappedJSON(t *testing.T) {
	text := "Here is the persona you asked for:\n```json\n{\"name\":\"Mail Triage\",\"system_prompt\":\"You triage mail.\"}\n```\nDone."
	d, err := ParseDraft(text)
	require.NoError(t, err)
	require.Equal(t, "Mail Triage", d.Name)
	require.Equal(t, "You triage mail.", d.SystemPrompt)
}

func TestParseDraftUnwrapsPersonaKey(t *testing.T) {
	text := `{"persona":{"name":"Wrapped","system_prompt":"p"},"triggers_created":2}`
	d, err := ParseDraft(text)
	require.NoError(t, err)
	require.Equal(t, "Wrapped", d.Name)
}

func TestParseDraftRejectsNonJSON(t *testing.T) {
	_, err := ParseDraft("the model rambled and produced nothing structured")
	require.Error(t, err)
}

func TestExtractJSONObjectSpansBraces(t *testing.T) {
	raw, ok := ExtractJSONObject(`noise before {"a":1} noise after`)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, raw)
}

func TestNormalizeFillsDisplayDefaults(t *testing.T) {
	d := &Draft{SystemPrompt: "p"}
	d.Normalize("Email Monitor")
	require.Equal(t, "Email Monitor", d.Name)
	require.Equal(t, DefaultColor, d.Color)
	require.Equal(t, DefaultIcon, d.Icon)

	d2 := &Draft{Name: "Kept", Icon: "Mail", Color: "#000", SystemPrompt: "p"}
	d2.Normalize("ignored")
	require.Equal(t, "Kept", d2.Name)
	require.Equal(t, "Mail", d2.Icon)
	require.Equal(t, "#000", d2.Color)
}

func TestValidateRequiresSystemPrompt(t *testing.T) {
	require.Error(t, (&Draft{SystemPrompt: "   "}).Validate())
	require.NoError(t, (&Draft{SystemPrompt: "You triage mail."}).Validate())
}

func TestExtractQuestions(t *testing.T) {
	out := "thinking...\n" + QuestionsMarker + "\n[{\"id\":\"q1\",\"question\":\"Which credential?\",\"type\":\"select\",\"options\":[\"a\",\"b\"],\"default\":\"a\"}]\n"
	qs, ok := ExtractQuestions(out)
	require.True(t, ok)
	require.Len(t, qs, 1)
	require.Equal(t, "q1", qs[0].ID)
	require.Equal(t, []string{"a", "b"}, qs[0].Options)
}

func TestExtractQuestionsMissingMarker(t *testing.T) {
	_, ok := ExtractQuestions(`[{"id":"q1"}]`)
	require.False(t, ok)
}

func TestAnswersRoundTrip(t *testing.T) {
	enc, err := EncodeAnswers(map[string]string{"q1": "Yes"})
	require.NoError(t, err)
	dec, err := DecodeAnswers(enc)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"q1": "Yes"}, dec)

	empty, err := DecodeAnswers("  ")
	require.NoError(t, err)
	require.Empty(t, empty)
}
