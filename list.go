package serialhunter

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// Exclude patterns for virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),  // Virtual terminals (tty1, tty2, etc.)
	regexp.MustCompile(`^console$`), // Console
	regexp.MustCompile(`^ptmx$`),    // Pseudo-terminal multiplexer
	regexp.MustCompile(`^pty.*$`),   // Pseudo-terminals
	regexp.MustCompile(`^pts/.*$`),  // Pseudo-terminal slaves
}

// ListPorts returns a sorted, de-duplicated list of available serial ports.
//
// The cross-platform enumerator is tried first since it consults the OS
// registry of attached devices. When it returns nothing (common in containers
// and on stripped-down systems), fall back to scanning /dev for the known
// serial device name patterns. Virtual terminals and pseudo-terminals are
// excluded either way.
func ListPorts() ([]string, error) {
	if detailed, err := enumerator.GetDetailedPortsList(); err == nil && len(detailed) > 0 {
		seen := make(map[string]struct{}, len(detailed))
		ports := make([]string, 0, len(detailed))
		for _, d := range detailed {
			if d == nil || d.Name == "" {
				continue
			}
			if _, ok := seen[d.Name]; ok {
				continue
			}
			seen[d.Name] = struct{}{}
			ports = append(ports, d.Name)
		}
		sort.Strings(ports)
		return ports, nil
	}

	return scanDevDir("/dev")
}

// scanDevDir lists serial character devices under the given directory
func scanDevDir(devDir string) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()

		if matchesExcludePattern(name) || !matchesSerialPattern(name) {
			continue
		}

		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// matchesSerialPattern reports whether a device name looks like a serial port
func matchesSerialPattern(name string) bool {
	for _, pattern := range serialPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// matchesExcludePattern reports whether a device name is a known non-serial tty
func matchesExcludePattern(name string) bool {
	for _, pattern := range excludePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo holds identifying information about a serial port
type PortInfo struct {
	Name            string
	Path            string
	Description     string
	VendorID        string
	ProductID       string
	SerialNumber    string
	Manufacturer    string
	Product         string
	BusNumber       string
	DeviceNumber    string
	InterfaceNumber string
}

// IsUSB reports whether USB metadata was found for this port
func (i *PortInfo) IsUSB() bool {
	return i.VendorID != "" || i.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)

	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}

	// The enumerator can fill gaps sysfs did not (and covers non-Linux hosts)
	if info.VendorID == "" || info.SerialNumber == "" {
		enrichFromEnumerator(info)
	}

	return info, nil
}

// ListPortInfo enumerates ports and resolves metadata for each in one call
func ListPortInfo() ([]*PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	infos := make([]*PortInfo, 0, len(ports))
	for _, p := range ports {
		info, err := GetPortInfo(p)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// enrichFromEnumerator fills USB fields from the cross-platform enumerator
func enrichFromEnumerator(info *PortInfo) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return
	}

	for _, d := range detailed {
		if d == nil || d.Name != info.Path {
			continue
		}
		if !d.IsUSB {
			return
		}
		if info.VendorID == "" {
			info.VendorID = strings.ToLower(d.VID)
		}
		if info.ProductID == "" {
			info.ProductID = strings.ToLower(d.PID)
		}
		if info.SerialNumber == "" {
			info.SerialNumber = d.SerialNumber
		}
		if info.Product == "" {
			info.Product = d.Product
		}
		return
	}
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
