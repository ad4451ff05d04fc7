/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/serialhunter/serialhunter"
	"github.com/serialhunter/serialhunter/internal/tui/components"
	"github.com/serialhunter/serialhunter/internal/tui/keys"
	"github.com/serialhunter/serialhunter/internal/tui/models"
	"github.com/serialhunter/serialhunter/internal/tui/styles"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// huntCmd represents the hunt command
var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Probe all serial ports to find a specific device",
	Long: `Probe every candidate serial port and report which one the hunted
device answers on.

Probes are built from flags and can be combined. Metadata probes (--vid,
--pid, --usb-serial, --product) never open the port; active probes open it
with the configured serial settings and talk to whatever is on the other end.

Example usage:
  serial-hunter hunt --vid 0403 --pid 6010
  serial-hunter hunt --usb-serial FT123456
  serial-hunter hunt --send "*IDN?" --expect "ACME" --baud 9600
  serial-hunter hunt --at
  serial-hunter hunt --nmea
  serial-hunter hunt --banner "U-Boot"
  serial-hunter hunt --replug
  serial-hunter hunt --at --json`,
	Run: func(cmd *cobra.Command, args []string) {
		probes, err := buildProbes(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		replug, _ := cmd.Flags().GetBool("replug")
		if len(probes) == 0 && !replug {
			fmt.Fprintln(os.Stderr, "Error: no probes configured")
			fmt.Fprintln(os.Stderr, "Use --vid/--pid, --usb-serial, --send/--expect, --at, --nmea, --banner or --replug")
			os.Exit(1)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		useTUI, _ := cmd.Flags().GetBool("tui")
		explicitPorts, _ := cmd.Flags().GetStringSlice("ports")

		// Replug mode narrows the candidate set to whatever shows up
		if replug {
			arrived, err := awaitReplug(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(probes) == 0 {
				// Nothing to verify, the arrival itself is the answer
				for _, port := range arrived {
					fmt.Println(port)
				}
				return
			}
			explicitPorts = arrived
		}

		hunter := buildHunter(cmd, probes, explicitPorts)

		if useTUI && !jsonOutput {
			if err := runHuntTUI(hunter); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report, err := hunter.Hunt(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			if report.Best() == nil {
				os.Exit(1)
			}
			return
		}

		printReport(report)
		if report.Best() == nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(huntCmd)

	// Metadata probes
	huntCmd.Flags().String("vid", "", "Match USB vendor ID (hex, e.g. 0403)")
	huntCmd.Flags().String("pid", "", "Match USB product ID (hex, e.g. 6010)")
	huntCmd.Flags().String("usb-serial", "", "Match USB serial number exactly")
	huntCmd.Flags().String("product", "", "Match USB product string (substring)")

	// Active probes
	huntCmd.Flags().String("send", "", "Challenge to write to each port")
	huntCmd.Flags().Bool("hex", false, "Interpret --send as hexadecimal bytes")
	huntCmd.Flags().String("expect", "", "Regexp the challenge response must match")
	huntCmd.Flags().Bool("at", false, "Probe with an AT command, match OK responses")
	huntCmd.Flags().Bool("nmea", false, "Match ports streaming valid NMEA sentences")
	huntCmd.Flags().String("banner", "", "Regexp matched against passive output (boot banners)")

	// Replug detection
	huntCmd.Flags().Bool("replug", false, "Detect the device by unplugging and replugging it")
	huntCmd.Flags().Duration("replug-timeout", 30*time.Second, "How long to wait for the replug")

	// Hunt behavior
	huntCmd.Flags().StringSlice("ports", nil, "Restrict the hunt to these port paths")
	huntCmd.Flags().DurationP("timeout", "t", 0, "Overall hunt timeout (0 = no limit)")
	huntCmd.Flags().Duration("port-timeout", 5*time.Second, "Time budget per port")
	huntCmd.Flags().IntP("parallelism", "p", 4, "How many ports to probe concurrently")

	// Output
	huntCmd.Flags().Bool("json", false, "Print the full report as JSON")
	huntCmd.Flags().Bool("tui", false, "Show an interactive results view")
}

func buildProbes(cmd *cobra.Command) ([]serialhunter.Probe, error) {
	var probes []serialhunter.Probe

	vid, _ := cmd.Flags().GetString("vid")
	pid, _ := cmd.Flags().GetString("pid")
	usbSerial, _ := cmd.Flags().GetString("usb-serial")
	product, _ := cmd.Flags().GetString("product")

	if vid != "" || pid != "" || usbSerial != "" || product != "" {
		probes = append(probes, &serialhunter.SignatureProbe{
			VendorID:     vid,
			ProductID:    pid,
			SerialNumber: usbSerial,
			Product:      product,
		})
	}

	send, _ := cmd.Flags().GetString("send")
	expect, _ := cmd.Flags().GetString("expect")
	if send != "" || expect != "" {
		if send == "" || expect == "" {
			return nil, fmt.Errorf("--send and --expect must be used together")
		}

		pattern, err := regexp.Compile(expect)
		if err != nil {
			return nil, fmt.Errorf("invalid --expect pattern: %w", err)
		}

		challenge := []byte(send + "\r\n")
		if hexMode, _ := cmd.Flags().GetBool("hex"); hexMode {
			raw, err := parseHexString(send)
			if err != nil {
				return nil, fmt.Errorf("invalid --send hex data: %w", err)
			}
			challenge = raw
		}

		probes = append(probes, &serialhunter.ChallengeProbe{
			Challenge: challenge,
			Expect:    pattern,
		})
	}

	if at, _ := cmd.Flags().GetBool("at"); at {
		probes = append(probes, &serialhunter.ATProbe{})
	}

	if nmea, _ := cmd.Flags().GetBool("nmea"); nmea {
		probes = append(probes, &serialhunter.NMEAProbe{})
	}

	if banner, _ := cmd.Flags().GetString("banner"); banner != "" {
		pattern, err := regexp.Compile(banner)
		if err != nil {
			return nil, fmt.Errorf("invalid --banner pattern: %w", err)
		}
		probes = append(probes, &serialhunter.BannerProbe{Pattern: pattern})
	}

	return probes, nil
}

func buildHunter(cmd *cobra.Command, probes []serialhunter.Probe, explicitPorts []string) *serialhunter.Hunter {
	portTimeout, _ := cmd.Flags().GetDuration("port-timeout")
	parallelism, _ := cmd.Flags().GetInt("parallelism")

	opts := []serialhunter.HunterOption{
		serialhunter.WithProbes(probes...),
		serialhunter.WithPortOptions(serialhunter.WithBaudRate(viper.GetInt("baud"))),
		serialhunter.WithPerPortTimeout(portTimeout),
		serialhunter.WithParallelism(parallelism),
	}
	if len(explicitPorts) > 0 {
		opts = append(opts, serialhunter.WithPorts(explicitPorts...))
	}

	return serialhunter.NewHunter(opts...)
}

func awaitReplug(cmd *cobra.Command) ([]string, error) {
	replugTimeout, _ := cmd.Flags().GetDuration("replug-timeout")

	ctx, cancel := context.WithTimeout(context.Background(), replugTimeout)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Unplug the device now, then plug it back in...")

	arrived, err := serialhunter.AwaitArrival(ctx, 0)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Detected %d new port(s)\n", len(arrived))
	return arrived, nil
}

func printReport(report *serialhunter.Report) {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	failStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Printf("%s Probed %d port(s) in %v\n",
		infoStyle.Render("⚡"),
		len(report.Candidates),
		report.Duration.Round(time.Millisecond))

	if len(report.Matches) == 0 {
		fmt.Printf("%s No matching device found\n", failStyle.Render("✗"))
		for _, probeErr := range report.Errors {
			fmt.Printf("  %s: %s: %s\n", probeErr.Port, probeErr.Probe, probeErr.Error)
		}
		return
	}

	for i, match := range report.Matches {
		marker := " "
		if i == 0 {
			marker = successStyle.Render("✓")
		}
		fmt.Printf("%s %-16s %-10s %.2f  %s\n", marker, match.Port, match.Probe, match.Confidence, match.Evidence)
	}
}

// huntModel represents the Bubble Tea model for the hunt command
type huntModel struct {
	*models.HuntModel
	hunter    *serialhunter.Hunter
	results   *components.ResultsTable
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.HuntKeys
	program   *tea.Program
}

func runHuntTUI(hunter *serialhunter.Hunter) error {
	m := &huntModel{
		HuntModel: models.NewHuntModel(),
		hunter:    hunter,
		results:   components.NewResultsTable(0),
		statusBar: components.NewStatusBar(models.PhaseEnumerating.String(), "hunt"),
		help:      help.New(),
		keys:      keys.NewHuntKeys(),
	}
	m.statusBar.SetSessionInfo(&components.SessionInfo{
		BaudRate: viper.GetInt("baud"),
		DataBits: 8,
		StopBits: 1,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.program = p

	go m.runHunt(p)

	_, err := p.Run()
	m.Cancel()
	return err
}

// runHunt executes one hunt session in the background and reports back to
// the TUI
func (m *huntModel) runHunt(p *tea.Program) {
	m.SetPhase(models.PhaseProbing)
	report, err := m.hunter.Hunt(m.GetContext())

	if report != nil && len(report.Matches) > 0 {
		if infos, infoErr := serialhunter.ListPortInfo(); infoErr == nil {
			for _, info := range infos {
				m.SetPortInfo(*info)
			}
		}
	}

	p.Send(models.ReportMsg{Report: report, Err: err})
}

func (m *huntModel) Init() tea.Cmd {
	return nil
}

func (m *huntModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.results.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.ReportMsg:
		if msg.Err != nil && msg.Err != context.Canceled {
			m.SetError(msg.Err)
		}
		m.SetReport(msg.Report)
		if msg.Report != nil {
			m.results.SetMatches(msg.Report.Matches, m.GetPortInfos())
			m.statusBar.SetProgress(len(msg.Report.Candidates), len(msg.Report.Candidates))
			m.statusBar.SetMatches(len(msg.Report.Matches))
		}
		m.statusBar.SetPhase(m.GetPhase().String())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Rescan):
			m.Restart()
			m.statusBar.SetPhase(m.GetPhase().String())
			m.statusBar.SetMatches(0)
			go m.runHunt(m.program)

		default:
			cmds = append(cmds, m.results.Update(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *huntModel) View() string {
	var content string
	switch {
	case m.GetError() != nil:
		content = styles.ErrorStyle.Render(fmt.Sprintf("Hunt failed: %v", m.GetError()))
	case m.GetReport() == nil:
		content = styles.InfoStyle.Render("Probing ports...")
	case len(m.GetReport().Matches) == 0:
		content = styles.ErrorStyle.Render("No matching device found (r to rescan)")
	default:
		content = m.results.View()
	}

	m.statusBar.SetPhase(m.GetPhase().String())
	statusBar := m.statusBar.View(time.Now().Format("15:04:05"))

	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		helpView,
		statusBar,
	)
}
