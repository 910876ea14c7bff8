package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the adoptctl color palette and base styles.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	TextDim lipgloss.Color

	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Selected   lipgloss.Style
	Keybind    lipgloss.Style
	KeybindKey lipgloss.Style
	StepDone   lipgloss.Style
	StepActive lipgloss.Style
	StepTodo   lipgloss.Style
	ErrorText  lipgloss.Style
	WarnText   lipgloss.Style
}

// DefaultTheme uses the persona accent purple as primary.
func DefaultTheme() Theme {
	primary := lipgloss.Color("#8B5CF6")
	success := lipgloss.Color("#22C55E")
	warning := lipgloss.Color("#EAB308")
	errorC := lipgloss.Color("#EF4444")
	muted := lipgloss.Color("#6B7280")
	text := lipgloss.Color("#F9FAFB")
	textDim := lipgloss.Color("#9CA3AF")

	return Theme{
		Primary: primary,
		Success: success,
		Warning: warning,
		Error:   errorC,
		Muted:   muted,
		Text:    text,
		TextDim: textDim,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(primary).
			Padding(0, 1),

		TitleMuted: lipgloss.NewStyle().
			Foreground(textDim),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(lipgloss.Color("#374151")),

		Keybind: lipgloss.NewStyle().
			Foreground(textDim),

		KeybindKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),

		StepDone: lipgloss.NewStyle().
			Foreground(success),

		StepActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),

		StepTodo: lipgloss.NewStyle().
			Foreground(muted),

		ErrorText: lipgloss.NewStyle().
			Foreground(errorC),

		WarnText: lipgloss.NewStyle().
			Foreground(warning),
	}
}

var DefaultStyles = DefaultTheme()
