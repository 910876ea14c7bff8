package styles

const (
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "⚠"
	IconRunning  = "▶"
	IconPending  = "○"
	IconSelected = "●"
	IconBullet   = "•"
)

// SelectionIcon marks whether a suggested entity is kept.
func SelectionIcon(selected bool) string {
	if selected {
		return IconSelected
	}
	return IconPending
}

// PhaseIcon marks the background job lifecycle.
func PhaseIcon(phase string) string {
	switch phase {
	case "running":
		return IconRunning
	case "completed":
		return IconSuccess
	case "failed":
		return IconError
	default:
		return IconPending
	}
}
