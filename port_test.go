package serialhunter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		device  string
		opts    []Option
		wantErr error
	}{
		{"missing device", "/dev/nonexistent-ttyUSB99", nil, ErrDeviceNotFound},
		{"invalid baud rate", "/dev/null", []Option{WithBaudRate(12345)}, ErrInvalidBaudRate},
		{"invalid data bits", "/dev/null", []Option{WithDataBits(9)}, ErrInvalidConfig},
		{"invalid read timeout", "/dev/null", []Option{WithReadTimeout(42 * time.Millisecond)}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.device, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Running as root, EACCES is not enforced")
	}

	path := filepath.Join(t.TempDir(), "locked")
	if err := os.WriteFile(path, nil, 0o000); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Open() error = %v, expected ErrPermissionDenied", err)
	}
}

func TestClosedPortGuards(t *testing.T) {
	buf := make([]byte, 8)
	p := &port{fd: -1, closed: true}

	tests := []struct {
		name string
		op   func() error
	}{
		{"read", func() error { _, err := p.Read(buf); return err }},
		{"write", func() error { _, err := p.Write([]byte("x")); return err }},
		{"drain", p.Drain},
		{"flush input", p.FlushInput},
		{"flush output", p.FlushOutput},
		{"modem signals", func() error { _, err := p.GetModemSignals(); return err }},
		{"set rts", func() error { return p.SetRTS(true) }},
		{"set dtr", func() error { return p.SetDTR(true) }},
		{"close again", p.Close},
		{"wait for signal change", func() error {
			_, _, err := p.WaitForSignalChange(context.Background(), SignalCTS)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, ErrPortClosed) {
				t.Errorf("Expected ErrPortClosed, got %v", err)
			}
		})
	}
}

func TestWaitForSignalChangeInvalidMask(t *testing.T) {
	p := &port{fd: -1}
	_, _, err := p.WaitForSignalChange(context.Background(), 0)
	if !errors.Is(err, ErrInvalidSignalMask) {
		t.Errorf("Expected ErrInvalidSignalMask for empty mask, got %v", err)
	}
}

func TestBaudRateConstant(t *testing.T) {
	for _, rate := range CommonBaudRates() {
		if _, err := baudRateConstant(rate); err != nil {
			t.Errorf("baudRateConstant(%d) failed: %v", rate, err)
		}
	}

	if _, err := baudRateConstant(12345); !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("Expected ErrInvalidBaudRate for 12345, got %v", err)
	}
}

func TestReadAtLeast(t *testing.T) {
	t.Run("accumulates short reads", func(t *testing.T) {
		f := &fakePort{}
		f.queueRX([]byte("AB"))
		go func() {
			time.Sleep(30 * time.Millisecond)
			f.queueRX([]byte("CD"))
		}()

		buf := make([]byte, 4)
		n, err := ReadAtLeast(context.Background(), f, buf, 4)
		if err != nil {
			t.Fatalf("ReadAtLeast failed: %v", err)
		}
		if n != 4 || string(buf) != "ABCD" {
			t.Errorf("ReadAtLeast = %d %q, expected 4 %q", n, buf[:n], "ABCD")
		}
	})

	t.Run("returns partial count on context expiry", func(t *testing.T) {
		f := &fakePort{}
		f.queueRX([]byte("AB"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		buf := make([]byte, 4)
		n, err := ReadAtLeast(ctx, f, buf, 4)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected DeadlineExceeded, got %v", err)
		}
		if n != 2 {
			t.Errorf("Partial count = %d, expected 2", n)
		}
	})

	t.Run("propagates port errors", func(t *testing.T) {
		f := &fakePort{}
		f.Close()

		buf := make([]byte, 4)
		if _, err := ReadAtLeast(context.Background(), f, buf, 1); !errors.Is(err, ErrPortClosed) {
			t.Errorf("Expected ErrPortClosed, got %v", err)
		}
	})
}

// TestOpenRealPort is an integration test that requires actual hardware
func TestOpenRealPort(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ports, err := ListPorts()
	if err != nil || len(ports) == 0 {
		t.Skip("No serial ports available")
	}

	port, err := Open(ports[0],
		WithBaudRate(115200),
		WithReadTimeout(200*time.Millisecond),
	)
	if err != nil {
		t.Skipf("Cannot open %s: %v", ports[0], err)
	}
	defer port.Close()

	signals, err := port.GetModemSignals()
	if err != nil {
		t.Errorf("GetModemSignals failed: %v", err)
	}
	t.Logf("%s signals: CTS=%v DSR=%v RI=%v DCD=%v",
		ports[0], signals.CTS, signals.DSR, signals.RI, signals.DCD)
}
