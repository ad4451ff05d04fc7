package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/serialhunter/serialhunter"
	"github.com/serialhunter/serialhunter/internal/tui/colors"
)

// SessionInfo carries the serial settings probes use, shown on the right of
// the status bar
type SessionInfo struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      serialhunter.Parity
	FlowControl serialhunter.FlowControl
}

type StatusBar struct {
	phase   string
	target  string
	status  string
	err     error
	width   int
	session *SessionInfo

	portsDone  int
	portsTotal int
	matches    int
}

func NewStatusBar(phase, target string) *StatusBar {
	return &StatusBar{
		phase:  phase,
		target: target,
		status: "Starting...",
	}
}

func (sb *StatusBar) SetStatus(status string, err error) {
	sb.status = status
	sb.err = err
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetSessionInfo(info *SessionInfo) {
	sb.session = info
}

func (sb *StatusBar) SetPhase(phase string) {
	sb.phase = phase
}

func (sb *StatusBar) SetProgress(done, total int) {
	sb.portsDone = done
	sb.portsTotal = total
}

func (sb *StatusBar) SetMatches(n int) {
	sb.matches = n
}

func flowControlToString(fc serialhunter.FlowControl) string {
	switch fc {
	case serialhunter.FlowControlNone:
		return "None"
	case serialhunter.FlowControlRTSCTS:
		return "RTS/CTS"
	default:
		return "Unknown"
	}
}

func parityToString(p serialhunter.Parity) string {
	switch p {
	case serialhunter.ParityNone:
		return "N"
	case serialhunter.ParityEven:
		return "E"
	case serialhunter.ParityOdd:
		return "O"
	case serialhunter.ParityMark:
		return "M"
	case serialhunter.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// View renders a single-line status bar: phase, target, progress on the
// left, serial settings and timestamp on the right
func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	phaseColor := colors.Blue
	switch sb.phase {
	case "PROBING", "WATCHING":
		phaseColor = colors.Yellow
	case "MATCHED":
		phaseColor = colors.Green
	case "NO MATCH", "ERROR":
		phaseColor = colors.Red
	}
	phase := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(phaseColor).
		Bold(true).
		Padding(0, 1).
		Render(sb.phase)

	targetStyle := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1)
	target := targetStyle.Render(sb.target)

	var progress string
	if sb.portsTotal > 0 {
		progressStyle := lipgloss.NewStyle().
			Foreground(colors.Peach).
			Padding(0, 1)
		progress = progressStyle.Render(fmt.Sprintf("%d/%d ports  ✓ %d", sb.portsDone, sb.portsTotal, sb.matches))
	}

	var sessionInfo string
	if sb.session != nil {
		sessionInfo = fmt.Sprintf("⚡ %d baud %d%s%d %s",
			sb.session.BaudRate,
			sb.session.DataBits,
			parityToString(sb.session.Parity),
			sb.session.StopBits,
			flowControlToString(sb.session.FlowControl))
	} else {
		sessionInfo = "⚡ serial"
	}
	sessionStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(sessionInfo)

	timeStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	var leftSide string
	if progress != "" {
		leftSide = lipgloss.JoinHorizontal(lipgloss.Left, phase, target, progress, divider)
	} else {
		leftSide = lipgloss.JoinHorizontal(lipgloss.Left, phase, target, divider)
	}
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, sessionStyled, divider, timeStyled)

	leftWidth := lipgloss.Width(leftSide)
	rightWidth := lipgloss.Width(rightSide)
	spacerWidth := terminalWidth - leftWidth - rightWidth
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	barStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide)
	return barStyle.Render(content)
}
