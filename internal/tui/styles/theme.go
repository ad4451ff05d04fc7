package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/serialhunter/serialhunter/internal/tui/colors"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Hunt phase styles
	PhaseProbingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	PhaseMatchedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	PhaseNoMatchStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	PhaseWatchingStyle = lipgloss.NewStyle().
				Foreground(colors.Sky).
				Bold(true)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red).
			Align(lipgloss.Center)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Align(lipgloss.Center)
)

type PhaseType int

const (
	PhaseProbing PhaseType = iota
	PhaseMatched
	PhaseNoMatch
	PhaseWatching
	PhaseError
)

func GetPhaseStyle(phase PhaseType) lipgloss.Style {
	switch phase {
	case PhaseProbing:
		return PhaseProbingStyle
	case PhaseMatched:
		return PhaseMatchedStyle
	case PhaseNoMatch:
		return PhaseNoMatchStyle
	case PhaseWatching:
		return PhaseWatchingStyle
	case PhaseError:
		return PhaseNoMatchStyle
	default:
		return PhaseProbingStyle
	}
}
