package serialhunter

import (
	"os"
	"path/filepath"
	"strings"
)

// sysfsRoot is overridable so tests can point at a mock tree
var sysfsRoot = "/sys"

// readSysfsFile reads a single-value sysfs attribute, trimmed of whitespace.
// Returns the empty string when the attribute does not exist.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// enrichUSBInfo extracts USB metadata from sysfs for a tty device.
//
// The layout for a USB serial adapter looks like:
//
//	/sys/class/tty/ttyUSB0/device -> .../5-2.3.1/5-2.3.1:1.0/ttyUSB0
//
// where 5-2.3.1:1.0 is the USB interface and 5-2.3.1 the USB device. The
// interface directory carries bInterfaceNumber; idVendor, idProduct, serial
// and friends live on the device directory two levels up. ttyACM devices
// resolve to the interface directory directly, so walk upward until a
// directory with idVendor is found.
func enrichUSBInfo(info *PortInfo) {
	devicePath := filepath.Join(sysfsRoot, "class", "tty", info.Name, "device")
	resolvedPath, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return
	}

	// Find the USB device directory (the one holding idVendor)
	usbDevicePath := resolvedPath
	found := false
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(filepath.Join(usbDevicePath, "idVendor")); err == nil {
			found = true
			break
		}
		parent := filepath.Dir(usbDevicePath)
		if parent == usbDevicePath {
			break
		}
		usbDevicePath = parent
	}
	if !found {
		return
	}

	info.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))

	// The interface directory sits between the tty dir and the USB device dir
	interfacePath := filepath.Dir(resolvedPath)
	info.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))
	if info.InterfaceNumber == "" {
		info.InterfaceNumber = readSysfsFile(filepath.Join(resolvedPath, "bInterfaceNumber"))
	}
}
