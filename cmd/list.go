/*
Copyright © 2025 The serial-hunter authors
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/serialhunter/serialhunter"
	"github.com/serialhunter/serialhunter/internal/tui/components"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := serialhunter.ListPortInfo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered := filterPortInfo(infos, filterType)

		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(filtered)
		} else {
			for _, info := range filtered {
				fmt.Println(info.Path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPortInfo filters the port list based on the specified filter type
func filterPortInfo(infos []*serialhunter.PortInfo, filterType string) []*serialhunter.PortInfo {
	if filterType == "" || filterType == "all" {
		return infos
	}

	var filtered []*serialhunter.PortInfo
	for _, info := range infos {
		name := strings.ToLower(info.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

// renderTable renders the port list with USB metadata in a table
func renderTable(infos []*serialhunter.PortInfo) {
	fmt.Printf("Found %d serial port(s):\n\n", len(infos))

	rows := make([]serialhunter.PortInfo, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, *info)
	}

	fmt.Println(components.RenderPortsTable(rows, 100))
}
