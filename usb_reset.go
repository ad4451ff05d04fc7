package serialhunter

import (
	"fmt"
	"os/exec"
	"time"
)

// ResetUSBDevice performs a USB-level reset of the device behind a port.
// This can recover hardware that is in a hung/unresponsive state, which
// otherwise defeats active probing.
//
// Requires the usbreset utility (usbutils package) and appropriate
// permissions, typically root.
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	// usbreset expects zero-padded 3-digit bus and device numbers (BBB/DDD)
	usbPath := fmt.Sprintf("%03s/%03s", info.BusNumber, info.DeviceNumber)

	cmd := exec.Command("usbreset", usbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	// USB devices typically take 1-2 seconds to re-enumerate
	time.Sleep(2 * time.Second)

	return nil
}

// ResetUSBDeviceBySerial resets a USB device by its serial number. Useful
// because the port path may change every time the device re-enumerates.
func ResetUSBDeviceBySerial(serialNumber string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}

		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(portPath)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
