/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/serialhunter/serialhunter"
	"github.com/spf13/cobra"
)

var (
	watchSignals  []string
	signalTimeout time.Duration
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display or monitor modem signal states",
	Long: `Display the current state of all modem control signals, or monitor
changes in real time with --watch.

Watching signals can identify a device too: toggle its power or reset line
and see which port's DCD or DSR moves.

Examples:
  serial-hunter signals /dev/ttyUSB0
  serial-hunter signals /dev/ttyUSB0 --watch
  serial-hunter signals /dev/ttyUSB0 --watch --signals cts,dcd

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		port, err := serialhunter.Open(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		signals, err := port.GetModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Modem Signals for %s:\n\n", portPath)
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
		fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			return
		}

		mask, err := parseSignalMask(watchSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\nStopping...")
			cancel()
		}()

		fmt.Println("\nWatching for signal changes, press Ctrl+C to stop")

		for {
			var state serialhunter.ModemSignals
			var changed serialhunter.SignalMask

			if signalTimeout > 0 {
				timeoutCtx, timeoutCancel := context.WithTimeout(ctx, signalTimeout)
				state, changed, err = port.WaitForSignalChange(timeoutCtx, mask)
				timeoutCancel()
			} else {
				state, changed, err = port.WaitForSignalChange(ctx, mask)
			}

			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				if errors.Is(err, serialhunter.ErrSignalTimeout) || errors.Is(err, context.DeadlineExceeded) {
					fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
					continue
				}
				fmt.Fprintf(os.Stderr, "Error waiting for signal change: %v\n", err)
				os.Exit(1)
			}

			printSignalChange(state, changed)
		}
	},
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func parseSignalMask(signalNames []string) (serialhunter.SignalMask, error) {
	if len(signalNames) == 0 {
		return serialhunter.AllSignals, nil
	}

	var mask serialhunter.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(name) {
		case "cts":
			mask |= serialhunter.SignalCTS
		case "dsr":
			mask |= serialhunter.SignalDSR
		case "ri":
			mask |= serialhunter.SignalRI
		case "dcd":
			mask |= serialhunter.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func printSignalChange(state serialhunter.ModemSignals, changed serialhunter.SignalMask) {
	stamp := time.Now().Format("15:04:05.000")

	var parts []string
	if changed&serialhunter.SignalCTS != 0 {
		parts = append(parts, fmt.Sprintf("CTS=%s", formatSignalState(state.CTS)))
	}
	if changed&serialhunter.SignalDSR != 0 {
		parts = append(parts, fmt.Sprintf("DSR=%s", formatSignalState(state.DSR)))
	}
	if changed&serialhunter.SignalRI != 0 {
		parts = append(parts, fmt.Sprintf("RI=%s", formatSignalState(state.RI)))
	}
	if changed&serialhunter.SignalDCD != 0 {
		parts = append(parts, fmt.Sprintf("DCD=%s", formatSignalState(state.DCD)))
	}

	fmt.Printf("[%s] %s\n", stamp, strings.Join(parts, " "))
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("watch", "w", false, "Watch for signal changes until interrupted")
	signalsCmd.Flags().StringSliceVar(&watchSignals, "signals", nil, "Signals to watch: cts, dsr, ri, dcd (default all)")
	signalsCmd.Flags().DurationVar(&signalTimeout, "timeout", 0, "Report a timeout if nothing changes within this duration")
}
