package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/personakit/adoptctl/pkg/tui/styles"
)

// Keybind is one hint in the footer bar.
type Keybind struct {
	Key   string
	Label string
}

// Footer renders the keybinding bar under a separator line.
type Footer struct {
	Keybinds []Keybind
	Width    int
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{Keybinds: keybinds, theme: styles.DefaultTheme()}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

func (f Footer) Render() string {
	theme := f.theme

	width := f.Width
	if width <= 0 {
		width = 80
	}
	separator := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Render(strings.Repeat("━", width))

	parts := make([]string, 0, len(f.Keybinds)*2)
	for i, kb := range f.Keybinds {
		if i > 0 {
			parts = append(parts, theme.TitleMuted.Render("  "))
		}
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]"))
		parts = append(parts, theme.Keybind.Render(" "+kb.Label))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Center, parts...)

	return lipgloss.JoinVertical(lipgloss.Left, separator, line)
}
