/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/serialhunter/serialhunter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port with configurable options.

This command sends data to the specified serial port. Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serial-hunter send /dev/ttyUSB0
- Interactive mode: serial-hunter send /dev/ttyUSB0 (prompts for input)

Useful for poking a port found by hunt, for example firing one AT command
or a device-specific identification query.

Example usage:
  serial-hunter send "Hello World" /dev/ttyUSB0
  serial-hunter send "AT+GMR" /dev/ttyUSB0 --newline
  echo "test" | serial-hunter send /dev/ttyUSB0
  serial-hunter send /dev/ttyUSB0  # Interactive mode`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data []byte
		var portPath string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				// No pipe input, use interactive mode
				data = []byte(promptForData())
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = []byte(strings.TrimRight(string(stdinData), "\r\n"))
			}
		} else {
			data = []byte(args[0])
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if hexMode {
			parsed, err := parseHexString(string(data))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			data = parsed
		}

		if addNewline && !hexMode {
			data = append(data, '\n')
		}

		opts := []serialhunter.Option{
			serialhunter.WithBaudRate(viper.GetInt("baud")),
		}

		if err := sendData(portPath, data, timeout, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// parseHexString converts hex strings to bytes. Supports both space-separated
// ("48 65 6C") and continuous ("48656C") forms, with optional 0x prefixes.
func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}

	result := make([]byte, 0, len(hexStr)/2)
	for i := 0; i < len(hexStr); i += 2 {
		b, err := strconv.ParseUint(hexStr[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %v", hexStr[i:i+2], err)
		}
		result = append(result, byte(b))
	}

	return result, nil
}

func sendData(portPath string, data []byte, timeout time.Duration, opts ...serialhunter.Option) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	port, err := serialhunter.Open(portPath, opts...)
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer port.Close()

	fmt.Printf("%s Connected successfully\n", successStyle.Render("✓"))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("%s failed to send data: %v", errorStyle.Render("✗"), err)
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)

	// Show a preview with unprintables made visible
	preview := serialhunter.DecodePretty(data)
	preview = strings.TrimRight(preview, "\n")
	if runes := []rune(preview); len(runes) > 50 {
		preview = string(runes[:50]) + "..."
	}
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}
