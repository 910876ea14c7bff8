package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/personakit/adoptctl/pkg/tui/styles"
)

// Header renders the wizard title bar: template name on the left, job phase
// on the right, separator underneath.
type Header struct {
	Title  string
	Phase  string
	Width  int
	theme  styles.Theme
	narrow bool
}

func NewHeader(title string) Header {
	return Header{Title: title, theme: styles.DefaultTheme()}
}

func (h Header) WithPhase(phase string) Header {
	h.Phase = phase
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	h.narrow = w > 0 && w < 48
	return h
}

func (h Header) Render() string {
	theme := h.theme

	left := theme.Title.Render(h.Title)
	right := ""
	if h.Phase != "" && !h.narrow {
		right = theme.TitleMuted.Render(styles.PhaseIcon(h.Phase) + " " + h.Phase)
	}

	width := h.Width
	if width <= 0 {
		width = 80
	}
	spacing := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 1 {
		spacing = 1
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(spacing).Render(""), right)

	separator := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Render(strings.Repeat("━", width))

	return lipgloss.JoinVertical(lipgloss.Left, line, separator)
}
