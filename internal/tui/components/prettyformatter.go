package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/serialhunter/serialhunter"
	"github.com/serialhunter/serialhunter/internal/tui/colors"
)

type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    string // For TX messages: "PENDING", "WRITTEN", "ERROR", empty for RX
}

type DisplayMode struct {
	ShowHex    bool
	ShowPretty bool
}

// PrettyFormatter renders serial traffic lines for the TUI. The pretty mode
// uses the control-picture codec so unprintable bytes stay visible without
// corrupting the terminal.
type PrettyFormatter struct {
	mode DisplayMode
}

func NewPrettyFormatter(showHex, showPretty bool) *PrettyFormatter {
	return &PrettyFormatter{
		mode: DisplayMode{
			ShowHex:    showHex,
			ShowPretty: showPretty,
		},
	}
}

func (pf *PrettyFormatter) SetDisplayMode(showHex, showPretty bool) {
	pf.mode.ShowHex = showHex
	pf.mode.ShowPretty = showPretty
}

func (pf *PrettyFormatter) GetDisplayMode() DisplayMode {
	return pf.mode
}

func (pf *PrettyFormatter) FormatMessage(msg DataReceivedMsg) string {
	timestamp := msg.Timestamp.Format("15:04:05.000")

	var indicator string
	if msg.IsTX {
		var txColor lipgloss.Color
		var statusText string

		switch msg.Status {
		case "PENDING":
			txColor = colors.Yellow
			statusText = "TX ○"
		case "WRITTEN":
			txColor = colors.Green
			statusText = "TX ✓"
		case "ERROR":
			txColor = colors.Red
			statusText = "TX ✗"
		default:
			txColor = colors.Peach
			statusText = "TX"
		}

		indicator = lipgloss.NewStyle().
			Foreground(txColor).
			Bold(true).
			Render("↗ " + statusText)
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var parts []string

	if pf.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}

	if pf.mode.ShowPretty {
		// Strip trailing line breaks so each message stays on one row;
		// the glyphs still show that they were there
		pretty := strings.TrimRight(serialhunter.DecodePretty(msg.Data), "\n")
		parts = append(parts, pretty)
	}

	if !pf.mode.ShowHex && !pf.mode.ShowPretty {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	timestampStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", timestamp))

	return fmt.Sprintf("%s %s: %s", timestampStyled, indicator, strings.Join(parts, "  "))
}

func (pf *PrettyFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = pf.FormatMessage(msg)
	}
	return formatted
}

func (pf *PrettyFormatter) ToggleHex() {
	pf.mode.ShowHex = !pf.mode.ShowHex
}

func (pf *PrettyFormatter) TogglePretty() {
	pf.mode.ShowPretty = !pf.mode.ShowPretty
}
