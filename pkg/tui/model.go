package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/tui/styles"
	"github.com/personakit/adoptctl/pkg/tui/widgets"
	"github.com/personakit/adoptctl/pkg/wizard"
)

var stepTitles = []string{"choose", "connect", "tune", "clarify", "build", "create"}

type inputMode int

const (
	inputNone inputMode = iota
	inputVariable
	inputNote
	inputAnswer
)

// Model is the bubbletea wizard front end. It renders from a cached copy of
// the wizard state and refreshes that copy whenever a bus message or a
// finished action signals a change; all mutation goes through the wizard.
type Model struct {
	w  *wizard.Wizard
	st wizard.State

	width  int
	height int

	cursor  int
	mode    inputMode
	input   textinput.Model
	varIdx  int
	qIdx    int
	output viewport.Model
	busy   bool
}

func NewModel(w *wizard.Wizard) Model {
	ti := textinput.New()
	ti.CharLimit = 512
	vp := viewport.New(80, 16)
	return Model{
		w:      w,
		st:     w.State(),
		input:  ti,
		output: vp,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) refresh() Model {
	m.st = m.w.State()
	m.output.SetContent(strings.Join(m.st.Job.Lines, "\n"))
	m.output.GotoBottom()
	return m
}

func (m Model) runAction(name string, fn func(context.Context) error) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	return m, func() tea.Msg {
		err := fn(context.Background())
		return ActionDoneMsg{Name: name, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m.output.Width = v.Width
		m.output.Height = max(4, v.Height-10)
		return m, nil

	case SnapshotMsg:
		return m.refresh(), nil

	case OutputAppendMsg:
		return m.refresh(), nil

	case ActionDoneMsg:
		m.busy = false
		return m.refresh(), nil

	case tea.KeyMsg:
		return m.updateKey(v)
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

func (m Model) updateKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != inputNone {
		return m.updateInputKey(key)
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "b":
		m.w.Back()
		return m.refresh(), nil
	case "x":
		if m.st.Job.ID != "" {
			return m.runAction("cancel", m.w.Cancel)
		}
		return m, nil
	case "e":
		m.w.Store().ClearError()
		return m.refresh(), nil
	}

	switch m.st.Step {
	case wizard.StepChoose:
		return m.updateChooseKey(key)
	case wizard.StepConnect:
		if key.String() == "enter" {
			return m.runAction("next", m.w.Next)
		}
	case wizard.StepTune:
		return m.updateTuneKey(key)
	case wizard.StepClarify:
		return m.updateClarifyKey(key)
	case wizard.StepBuild:
		if key.String() == "enter" && m.st.Draft.Draft != nil {
			return m.runAction("next", m.w.Next)
		}
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(key)
		return m, cmd
	case wizard.StepCreate:
		if key.String() == "y" && !m.st.Finalize.Created {
			return m.runAction("confirm", m.w.Confirm)
		}
	}
	return m, nil
}

func (m Model) updateChooseKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := chooseItems(m.st)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(items) {
			items[m.cursor].toggle(m.w.Store())
			return m.refresh(), nil
		}
	case "enter":
		return m.runAction("next", m.w.Next)
	}
	return m, nil
}

func (m Model) updateTuneKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "v":
		if names := m.placeholders(); len(names) > 0 {
			m.mode = inputVariable
			m.varIdx = 0
			m.input.Placeholder = names[0]
			m.input.SetValue(m.st.Variables[names[0]])
			m.input.Focus()
		}
		return m, nil
	case "n":
		m.mode = inputNote
		m.input.Placeholder = "adjustment note"
		m.input.SetValue(m.st.AdjustmentNote)
		m.input.Focus()
		return m, nil
	case "enter":
		return m.runAction("next", m.w.Next)
	}
	return m, nil
}

func (m Model) updateClarifyKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	qs := m.st.Clarify.Questions
	switch key.String() {
	case "enter":
		if m.qIdx < len(qs) {
			m.mode = inputAnswer
			q := qs[m.qIdx]
			m.input.Placeholder = q.Default
			m.input.SetValue(m.st.Clarify.Answers[q.ID])
			m.input.Focus()
		}
		return m, nil
	case "s":
		if len(m.st.Clarify.Answers) > 0 {
			return m.runAction("answers", m.w.SubmitAnswers)
		}
	}
	return m, nil
}

func (m Model) updateInputKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := m.input.Value()
		switch m.mode {
		case inputVariable:
			names := m.placeholders()
			if m.varIdx < len(names) {
				m.w.Store().SetVariable(names[m.varIdx], value)
			}
			m.varIdx++
			if m.varIdx < len(names) {
				m.input.Placeholder = names[m.varIdx]
				m.input.SetValue(m.st.Variables[names[m.varIdx]])
				return m.refresh(), nil
			}
		case inputNote:
			m.w.Store().SetAdjustmentNote(value)
		case inputAnswer:
			qs := m.st.Clarify.Questions
			if m.qIdx < len(qs) {
				m.w.Store().SetAnswer(qs[m.qIdx].ID, value)
			}
			if m.qIdx < len(qs)-1 {
				m.qIdx++
				m.mode = inputNone
				m.input.Blur()
				return m.refresh(), nil
			}
		}
		m.mode = inputNone
		m.input.Blur()
		return m.refresh(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m Model) placeholders() []string {
	if m.st.Template.Result == nil {
		return nil
	}
	return design.Placeholders(*m.st.Template.Result)
}

func (m Model) View() string {
	theme := styles.DefaultStyles
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	title := "adopt: " + m.st.Template.TemplateName
	b.WriteString(widgets.NewHeader(title).WithPhase(m.st.Job.Phase.String()).WithWidth(width).Render())
	b.WriteString("\n")
	b.WriteString(widgets.NewStepTrail(stepTitles, m.st.Step.Index()).Render())
	b.WriteString("\n\n")

	if m.st.Err != "" {
		b.WriteString(theme.ErrorText.Render(styles.IconError+" "+m.st.Err) + "\n\n")
	}

	switch m.st.Step {
	case wizard.StepChoose:
		b.WriteString(m.viewChoose())
	case wizard.StepConnect:
		b.WriteString(m.viewConnect())
	case wizard.StepTune:
		b.WriteString(m.viewTune())
	case wizard.StepClarify:
		b.WriteString(m.viewClarify())
	case wizard.StepBuild:
		b.WriteString(m.viewBuild())
	case wizard.StepCreate:
		b.WriteString(m.viewCreate())
	}

	if m.mode != inputNone {
		b.WriteString("\n" + m.input.View() + "\n")
	}

	b.WriteString("\n")
	b.WriteString(widgets.NewFooter(m.keybinds()).WithWidth(width).Render())
	return b.String()
}

func (m Model) keybinds() []widgets.Keybind {
	if m.mode != inputNone {
		return []widgets.Keybind{{Key: "enter", Label: "save"}, {Key: "esc", Label: "abort"}}
	}
	kb := []widgets.Keybind{}
	switch m.st.Step {
	case wizard.StepChoose:
		kb = append(kb, widgets.Keybind{Key: "space", Label: "toggle"}, widgets.Keybind{Key: "enter", Label: "next"})
	case wizard.StepConnect:
		kb = append(kb, widgets.Keybind{Key: "enter", Label: "next"})
	case wizard.StepTune:
		kb = append(kb,
			widgets.Keybind{Key: "v", Label: "variables"},
			widgets.Keybind{Key: "n", Label: "note"},
			widgets.Keybind{Key: "enter", Label: "generate"})
	case wizard.StepClarify:
		kb = append(kb, widgets.Keybind{Key: "enter", Label: "answer"}, widgets.Keybind{Key: "s", Label: "submit"})
	case wizard.StepBuild:
		if m.st.Draft.Draft != nil {
			kb = append(kb, widgets.Keybind{Key: "enter", Label: "review"})
		}
	case wizard.StepCreate:
		if !m.st.Finalize.Created {
			kb = append(kb, widgets.Keybind{Key: "y", Label: "create persona"})
		}
	}
	if m.st.Job.ID != "" {
		kb = append(kb, widgets.Keybind{Key: "x", Label: "cancel job"})
	}
	kb = append(kb, widgets.Keybind{Key: "b", Label: "back"}, widgets.Keybind{Key: "q", Label: "quit"})
	return kb
}

type chooseItem struct {
	label    string
	selected bool
	toggle   func(*wizard.Store)
}

func chooseItems(st wizard.State) []chooseItem {
	res := st.Template.Result
	if res == nil {
		return nil
	}
	sel := st.Selection

	var items []chooseItem
	for i, name := range res.SuggestedTools {
		i := i
		items = append(items, chooseItem{
			label:    "tool: " + name,
			selected: sel.Tools[i],
			toggle:   func(s *wizard.Store) { s.ToggleTool(i) },
		})
	}
	for i, tr := range res.SuggestedTriggers {
		i := i
		items = append(items, chooseItem{
			label:    "trigger: " + tr.TriggerType,
			selected: sel.Triggers[i],
			toggle:   func(s *wizard.Store) { s.ToggleTrigger(i) },
		})
	}
	for i, c := range res.SuggestedConnectors {
		i := i
		items = append(items, chooseItem{
			label:    "connector: " + c.Name,
			selected: sel.Connectors[i],
			toggle:   func(s *wizard.Store) { s.ToggleConnector(i) },
		})
	}
	for i, ch := range res.SuggestedNotificationChannels {
		i := i
		items = append(items, chooseItem{
			label:    "channel: " + ch.Type,
			selected: sel.Channels[i],
			toggle:   func(s *wizard.Store) { s.ToggleChannel(i) },
		})
	}
	for i, ev := range res.SuggestedEventSubscriptions {
		i := i
		items = append(items, chooseItem{
			label:    "event: " + ev.EventType,
			selected: sel.Subscriptions[i],
			toggle:   func(s *wizard.Store) { s.ToggleSubscription(i) },
		})
	}
	for _, uc := range res.UseCaseFlows {
		id := uc.ID
		items = append(items, chooseItem{
			label:    "use case: " + uc.Name,
			selected: sel.UseCases[id],
			toggle:   func(s *wizard.Store) { s.ToggleUseCase(id) },
		})
	}
	return items
}

func (m Model) viewChoose() string {
	theme := styles.DefaultStyles
	items := chooseItems(m.st)
	if len(items) == 0 {
		return theme.TitleMuted.Render("The design result suggests nothing to pick from.") + "\n"
	}

	var b strings.Builder
	b.WriteString(theme.TitleMuted.Render("Keep or drop the suggested pieces:") + "\n\n")
	for i, it := range items {
		line := fmt.Sprintf("%s %s", styles.SelectionIcon(it.selected), it.label)
		if i == m.cursor {
			line = theme.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) viewConnect() string {
	theme := styles.DefaultStyles
	res := m.st.Template.Result
	var b strings.Builder
	b.WriteString(theme.TitleMuted.Render("Connectors the persona will need:") + "\n\n")
	count := 0
	if res != nil {
		for i, c := range res.SuggestedConnectors {
			if !m.st.Selection.Connectors[i] {
				continue
			}
			count++
			b.WriteString(fmt.Sprintf("%s %s (%s)\n", styles.IconBullet, c.Label, c.AuthType))
			if c.SetupInstructions != "" {
				b.WriteString("  " + theme.TitleMuted.Render(c.SetupInstructions) + "\n")
			}
		}
	}
	if count == 0 {
		b.WriteString(theme.TitleMuted.Render("none selected") + "\n")
	}
	return b.String()
}

func (m Model) viewTune() string {
	theme := styles.DefaultStyles
	var b strings.Builder
	names := m.placeholders()
	if len(names) > 0 {
		b.WriteString(theme.TitleMuted.Render("Template variables:") + "\n")
		for _, name := range names {
			value := m.st.Variables[name]
			if value == "" {
				value = theme.TitleMuted.Render("(unset)")
			}
			b.WriteString(fmt.Sprintf("  %s = %s\n", name, value))
		}
		b.WriteString("\n")
	}
	if m.st.AdjustmentNote != "" {
		b.WriteString("Note: " + m.st.AdjustmentNote + "\n\n")
	}
	b.WriteString("Press enter to start generation.\n")
	return b.String()
}

func (m Model) viewClarify() string {
	theme := styles.DefaultStyles
	var b strings.Builder
	b.WriteString(theme.TitleMuted.Render("The generator needs a few answers:") + "\n\n")
	for i, q := range m.st.Clarify.Questions {
		marker := "  "
		if i == m.qIdx {
			marker = styles.IconRunning + " "
		}
		answer := m.st.Clarify.Answers[q.ID]
		if answer == "" {
			answer = theme.TitleMuted.Render("(unanswered)")
		}
		b.WriteString(fmt.Sprintf("%s%s\n    %s\n", marker, q.Question, answer))
	}
	return b.String()
}

func (m Model) viewBuild() string {
	theme := styles.DefaultStyles
	var b strings.Builder
	if m.st.Draft.Draft != nil {
		b.WriteString(theme.StepDone.Render(styles.IconSuccess+" Draft ready: "+m.st.Draft.Draft.Name) + "\n\n")
	} else {
		b.WriteString(theme.TitleMuted.Render("Generating persona...") + "\n\n")
	}
	b.WriteString(m.output.View())
	return b.String()
}

func (m Model) viewCreate() string {
	theme := styles.DefaultStyles
	var b strings.Builder
	if m.st.Finalize.Created {
		res := m.st.Finalize.Result
		b.WriteString(theme.StepDone.Render(styles.IconSuccess+" Persona created: "+res.PersonaID) + "\n")
		b.WriteString(fmt.Sprintf("  triggers: %d  tools: %d\n", res.TriggersCreated, res.ToolsCreated))
		for _, name := range res.ConnectorsNeedingSetup {
			b.WriteString(theme.WarnText.Render(styles.IconWarning+" connector needs credentials: "+name) + "\n")
		}
		for _, ee := range res.EntityErrors {
			b.WriteString(theme.WarnText.Render(styles.IconWarning+" "+ee.Error()) + "\n")
		}
		return b.String()
	}

	if d := m.st.Draft.Draft; d != nil {
		b.WriteString("Ready to create " + theme.StepActive.Render(d.Name) + "\n")
		if d.Description != "" {
			b.WriteString("  " + d.Description + "\n")
		}
		b.WriteString(fmt.Sprintf("  triggers: %d  tools: %d  connectors: %d\n",
			len(d.Triggers), len(d.Tools), len(d.RequiredConnectors)))
	}
	if m.st.Finalize.Confirming {
		b.WriteString(theme.TitleMuted.Render("creating...") + "\n")
	}
	return b.String()
}
