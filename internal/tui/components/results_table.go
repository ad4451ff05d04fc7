package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/serialhunter/serialhunter"
	"github.com/serialhunter/serialhunter/internal/tui/colors"
)

const (
	columnKeyPort       = "port"
	columnKeyDevice     = "device"
	columnKeySerial     = "serial"
	columnKeyProbe      = "probe"
	columnKeyConfidence = "confidence"
	columnKeyEvidence   = "evidence"
)

// ResultsTable shows hunt matches ranked by confidence
type ResultsTable struct {
	table table.Model
}

func resultsColumns() []table.Column {
	return []table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyDevice, "VID:PID", 10),
		table.NewFlexColumn(columnKeySerial, "Serial", 1),
		table.NewColumn(columnKeyProbe, "Probe", 10),
		table.NewColumn(columnKeyConfidence, "Conf", 6),
		table.NewFlexColumn(columnKeyEvidence, "Evidence", 2),
	}
}

func tableStyles() (header, base lipgloss.Style) {
	header = lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Text).
		BorderForeground(colors.Subtext0)
	base = lipgloss.NewStyle().
		Foreground(colors.Text).
		BorderForeground(colors.Surface1)
	return header, base
}

func NewResultsTable(width int) *ResultsTable {
	if width < 80 {
		width = 80
	}

	header, base := tableStyles()
	t := table.New(resultsColumns()).
		HeaderStyle(header).
		WithBaseStyle(base).
		WithTargetWidth(width).
		Focused(true)

	return &ResultsTable{table: t}
}

func (rt *ResultsTable) SetWidth(width int) {
	if width < 80 {
		width = 80
	}
	rt.table = rt.table.WithTargetWidth(width)
}

// SetMatches replaces the table contents. Port metadata fills the device
// columns when it is known.
func (rt *ResultsTable) SetMatches(matches []serialhunter.Match, infos map[string]serialhunter.PortInfo) {
	rows := make([]table.Row, 0, len(matches))
	for _, match := range matches {
		device := ""
		serial := ""
		if info, ok := infos[match.Port]; ok {
			if info.VendorID != "" {
				device = fmt.Sprintf("%s:%s", info.VendorID, info.ProductID)
			}
			serial = info.SerialNumber
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:       match.Port,
			columnKeyDevice:     device,
			columnKeySerial:     serial,
			columnKeyProbe:      match.Probe,
			columnKeyConfidence: fmt.Sprintf("%.2f", match.Confidence),
			columnKeyEvidence:   match.Evidence,
		}))
	}
	rt.table = rt.table.WithRows(rows)
}

func (rt *ResultsTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	rt.table, cmd = rt.table.Update(msg)
	return cmd
}

func (rt *ResultsTable) View() string {
	return rt.table.View()
}

// RenderPortsTable renders a static, non-interactive table of enumerated
// ports for plain stdout output
func RenderPortsTable(infos []serialhunter.PortInfo, width int) string {
	if width < 80 {
		width = 80
	}

	header, base := tableStyles()
	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		device := ""
		if info.VendorID != "" {
			device = fmt.Sprintf("%s:%s", info.VendorID, info.ProductID)
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:     info.Path,
			columnKeyDevice:   device,
			columnKeySerial:   info.SerialNumber,
			columnKeyProbe:    "",
			columnKeyEvidence: info.Description,
		}))
	}

	t := table.New([]table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyDevice, "VID:PID", 10),
		table.NewFlexColumn(columnKeySerial, "Serial", 1),
		table.NewFlexColumn(columnKeyEvidence, "Description", 2),
	}).
		HeaderStyle(header).
		WithBaseStyle(base).
		WithTargetWidth(width).
		WithRows(rows)

	return t.View()
}
