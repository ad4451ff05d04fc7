/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
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

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [port]",
	Short: "Watch a port's traffic, or the port set, in real time",
	Long: `Without arguments, watch the system's serial port set and show every
arrival and removal as it happens. This is the live view behind the replug
trick: start watching, plug your device in, and the port that appears is the
one you want.

With a port argument, stream that port's traffic through the pretty decoder
so control bytes and binary noise stay visible. Toggle pretty and hex
rendering with 'p' and 'h'.

Example usage:
  serial-hunter watch
  serial-hunter watch --interval 250ms
  serial-hunter watch --plain
  serial-hunter watch /dev/ttyUSB0
  serial-hunter watch /dev/ttyUSB0 --baud 9600`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			opts := []serialhunter.Option{
				serialhunter.WithBaudRate(viper.GetInt("baud")),
			}
			if err := runStreamTUI(args[0], opts...); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		plain, _ := cmd.Flags().GetBool("plain")

		if plain {
			if err := runWatchPlain(interval); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := runWatchTUI(interval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationP("interval", "i", 500*time.Millisecond, "Poll interval for port-set watching")
	watchCmd.Flags().Bool("plain", false, "Print port-set events as plain lines instead of the TUI")
}

// runWatchPlain streams port-set events to stdout until interrupted
func runWatchPlain(interval time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	events, err := serialhunter.WatchPorts(ctx, interval)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Watching serial ports, press Ctrl+C to stop")

	for ev := range events {
		stamp := ev.At.Format("15:04:05.000")
		for _, port := range ev.Added {
			fmt.Printf("[%s] + %s\n", stamp, port)
		}
		for _, port := range ev.Removed {
			fmt.Printf("[%s] - %s\n", stamp, port)
		}
	}
	return nil
}

// watchModel represents the Bubble Tea model for port-set watching
type watchModel struct {
	*models.WatchModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
}

func runWatchTUI(interval time.Duration) error {
	m := &watchModel{
		WatchModel: models.NewWatchModel(),
		terminal:   components.NewTerminal(0, 0), // Sized by WindowSizeMsg
		statusBar:  components.NewStatusBar("WATCHING", "ports"),
		help:       help.New(),
		keys:       keys.NewTerminalKeys(),
	}
	m.statusBar.SetStatus("Watching for port changes...", nil)

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		events, err := serialhunter.WatchPorts(m.GetContext(), interval)
		if err != nil {
			p.Send(models.WatchClosedMsg{Err: err})
			return
		}
		for ev := range events {
			p.Send(models.PortEventMsg{Added: ev.Added, Removed: ev.Removed, At: ev.At})
		}
		p.Send(models.WatchClosedMsg{})
	}()

	_, err := p.Run()
	m.Cancel()
	return err
}

func (m *watchModel) Init() tea.Cmd {
	return nil
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		statusBarHeight := 1
		helpHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-statusBarHeight-helpHeight)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.PortEventMsg:
		m.CountEvent()
		stamp := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).
			Render(fmt.Sprintf("[%s]", msg.At.Format("15:04:05.000")))
		for _, port := range msg.Added {
			line := styles.PhaseMatchedStyle.Render("+ " + port)
			m.terminal.AddLine(fmt.Sprintf("%s %s", stamp, line))
		}
		for _, port := range msg.Removed {
			line := styles.PhaseNoMatchStyle.Render("- " + port)
			m.terminal.AddLine(fmt.Sprintf("%s %s", stamp, line))
		}
		m.statusBar.SetStatus(fmt.Sprintf("%d event(s)", m.EventCount()), nil)

	case models.WatchClosedMsg:
		if msg.Err != nil {
			m.SetError(msg.Err)
			m.statusBar.SetStatus("Watcher stopped", msg.Err)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()
		}
	}

	// Update terminal viewport for window resize messages
	switch msg.(type) {
	case tea.WindowSizeMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *watchModel) View() string {
	var content string
	if m.IsReady() {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	if m.GetError() != nil {
		content = styles.ErrorStyle.Render(fmt.Sprintf("Watch failed: %v", m.GetError()))
	}

	statusBar := m.statusBar.View(time.Now().Format("15:04:05"))
	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		helpView,
		statusBar,
	)
}

// streamModel represents the Bubble Tea model for single-port streaming
type streamModel struct {
	*models.StreamModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
	rawData   []components.DataReceivedMsg
}

func runStreamTUI(portPath string, opts ...serialhunter.Option) error {
	// Resolve the settings for the status bar before opening
	config := serialhunter.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return err
		}
	}

	m := &streamModel{
		StreamModel: models.NewStreamModel(portPath),
		terminal:    components.NewTerminal(0, 0),
		statusBar:   components.NewStatusBar("WATCHING", portPath),
		help:        help.New(),
		keys:        keys.NewTerminalKeys(),
	}
	m.statusBar.SetStatus("Connecting...", nil)
	m.statusBar.SetSessionInfo(&components.SessionInfo{
		BaudRate:    config.BaudRate,
		DataBits:    config.DataBits,
		StopBits:    config.StopBits,
		Parity:      config.Parity,
		FlowControl: config.FlowControl,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Connect and read in the background
	go func() {
		port, err := serialhunter.Open(portPath, opts...)
		if err != nil {
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}
		m.SetPort(port)
		p.Send(models.ConnectionStatusMsg{Connected: true})

		go func() {
			defer port.Close()

			buffer := make([]byte, 1024)
			for {
				select {
				case <-m.GetContext().Done():
					return
				default:
					n, err := port.ReadContext(m.GetContext(), buffer)
					if err != nil {
						if m.GetContext().Err() != nil {
							return
						}
						continue
					}
					if n > 0 {
						data := make([]byte, n)
						copy(data, buffer[:n])
						p.Send(components.DataReceivedMsg{
							Timestamp: time.Now(),
							Data:      data,
						})
					}
				}
			}
		}()
	}()

	_, err := p.Run()
	m.Cancel()
	return err
}

func (m *streamModel) Init() tea.Cmd {
	return nil
}

func (m *streamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		statusBarHeight := 1
		helpHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-statusBarHeight-helpHeight)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetStatus(fmt.Sprintf("Connection failed: %v", msg.Error), msg.Error)
		} else {
			m.statusBar.SetStatus("Connected - listening for data...", nil)
		}

	case components.DataReceivedMsg:
		if m.IsReady() {
			m.rawData = append(m.rawData, msg)
			m.terminal.AddMessage(msg)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Clear):
			m.rawData = nil
			m.terminal.Clear()

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
			m.terminal.RefreshDisplayWithRawData(m.rawData)

		case key.Matches(msg, m.keys.TogglePretty):
			m.terminal.TogglePretty()
			m.terminal.RefreshDisplayWithRawData(m.rawData)
		}
	}

	// Update terminal viewport for window resize messages
	switch msg.(type) {
	case tea.WindowSizeMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *streamModel) View() string {
	var content string
	if m.IsReady() {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	if m.GetError() != nil {
		content = styles.ErrorStyle.Render(fmt.Sprintf("Watch failed: %v", m.GetError()))
	}

	phase := "WATCHING"
	if !m.IsConnected() && m.GetError() != nil {
		phase = "ERROR"
	}
	m.statusBar.SetPhase(phase)

	statusBar := m.statusBar.View(time.Now().Format("15:04:05"))
	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		helpView,
		statusBar,
	)
}
