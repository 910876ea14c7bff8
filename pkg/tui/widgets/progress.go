package widgets

import (
	"strings"

	"github.com/personakit/adoptctl/pkg/tui/styles"
)

// StepTrail renders the wizard's step sequence with completed, active and
// upcoming steps distinguished.
type StepTrail struct {
	Steps  []string
	Active int
	theme  styles.Theme
}

func NewStepTrail(steps []string, active int) StepTrail {
	return StepTrail{Steps: steps, Active: active, theme: styles.DefaultTheme()}
}

func (t StepTrail) Render() string {
	theme := t.theme
	var parts []string
	for i, name := range t.Steps {
		var rendered string
		switch {
		case i < t.Active:
			rendered = theme.StepDone.Render(styles.IconSuccess + " " + name)
		case i == t.Active:
			rendered = theme.StepActive.Render(styles.IconRunning + " " + name)
		default:
			rendered = theme.StepTodo.Render(styles.IconPending + " " + name)
		}
		parts = append(parts, rendered)
	}
	sep := theme.TitleMuted.Render(" → ")
	return strings.Join(parts, sep)
}
