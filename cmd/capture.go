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

	"github.com/serialhunter/serialhunter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads data from the specified serial port and writes it directly to the
output file. Runs continuously until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

With --pretty the stream is written through the control-picture decoder, so
the file stays readable even when the device emits binary garbage.

Example usage:
  serial-hunter capture /dev/ttyUSB0 data.log
  serial-hunter capture /dev/ttyUSB0 output.txt --baud 9600
  serial-hunter capture /dev/ttyUSB0 capture.log --console
  serial-hunter capture /dev/ttyUSB0 boot.log --pretty`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		outputPath := args[1]

		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")
		pretty, _ := cmd.Flags().GetBool("pretty")

		opts := []serialhunter.Option{
			serialhunter.WithBaudRate(viper.GetInt("baud")),
		}

		if err := runCapture(portPath, outputPath, bufferSize, showConsole, pretty, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Bool("pretty", false, "Write pretty-decoded text instead of raw bytes")
}

func runCapture(portPath, outputPath string, bufferSize int, showConsole, pretty bool, opts ...serialhunter.Option) error {
	port, err := serialhunter.Open(portPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	// Setup signal handling for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	// The decoder keeps newline state across chunk boundaries
	var decoder serialhunter.PrettyDecoder

	buffer := make([]byte, bufferSize)
	bytesWritten := int64(0)
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			duration := time.Since(startTime)
			fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", bytesWritten, duration.Round(time.Millisecond))
			return nil
		default:
			n, err := port.ReadContext(ctx, buffer)
			if err != nil {
				if ctx.Err() != nil {
					// Context cancelled, clean shutdown
					return nil
				}
				return fmt.Errorf("read error: %w", err)
			}

			if n > 0 {
				out := buffer[:n]
				if pretty {
					out = []byte(decoder.Decode(buffer[:n]))
				}

				written, err := file.Write(out)
				if err != nil {
					return fmt.Errorf("write error: %w", err)
				}
				bytesWritten += int64(written)

				if showConsole {
					os.Stdout.Write(out)
				}
			}
		}
	}
}
