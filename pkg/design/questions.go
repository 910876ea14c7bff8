package design

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// QuestionsMarker is the line the generator prints before a clarification
// block instead of a persona draft.
const QuestionsMarker = "TRANSFORM_QUESTIONS"

// Question is one clarification the generator wants answered before it can
// produce a draft.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Context  string   `json:"context,omitempty"`
}

// ExtractQuestions looks for the clarification marker in generator output and
// decodes the JSON array that follows it. Returns false when the output
// contains no marker or no parsable array.
func ExtractQuestions(text string) ([]Question, bool) {
	pos := strings.Index(text, QuestionsMarker)
	if pos < 0 {
		return nil, false
	}
	after := text[pos+len(QuestionsMarker):]
	start := strings.Index(after, "[")
	end := strings.LastIndex(after, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var qs []Question
	if err := json.Unmarshal([]byte(after[start:end+1]), &qs); err != nil {
		return nil, false
	}
	return qs, true
}

// EncodeAnswers serializes question answers keyed by question id for the
// continue call.
func EncodeAnswers(answers map[string]string) (string, error) {
	b, err := json.Marshal(answers)
	if err != nil {
		return "", errors.Wrap(err, "encode answers")
	}
	return string(b), nil
}

// DecodeAnswers is the inverse of EncodeAnswers.
func DecodeAnswers(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "decode answers")
	}
	return m, nil
}
