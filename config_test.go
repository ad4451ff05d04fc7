package serialhunter

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}

	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}

	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}

	if config.FlowControl != FlowControlNone {
		t.Errorf("Expected FlowControl None, got %v", config.FlowControl)
	}

	if config.ReadTimeout != 200*time.Millisecond {
		t.Errorf("Expected ReadTimeout 200ms, got %v", config.ReadTimeout)
	}

	if config.InitialRTS != nil || config.InitialDTR != nil {
		t.Error("Initial signal states should default to nil")
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestReadTimeoutTenths(t *testing.T) {
	tests := []struct {
		timeout  time.Duration
		expected uint8
	}{
		{0, 0},
		{100 * time.Millisecond, 1},
		{200 * time.Millisecond, 2},
		{2500 * time.Millisecond, 25},
		{25500 * time.Millisecond, 255},
	}

	for _, tt := range tests {
		config := DefaultConfig()
		config.ReadTimeout = tt.timeout
		if got := config.readTimeoutTenths(); got != tt.expected {
			t.Errorf("readTimeoutTenths() for %v = %d, expected %d", tt.timeout, got, tt.expected)
		}
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	err := WithBaudRate(115200)(&config)
	if err != nil {
		t.Errorf("WithBaudRate failed: %v", err)
	}
	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}

	err = WithDataBits(7)(&config)
	if err != nil {
		t.Errorf("WithDataBits failed: %v", err)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}

	err = WithStopBits(2)(&config)
	if err != nil {
		t.Errorf("WithStopBits failed: %v", err)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}

	err = WithParity(ParityEven)(&config)
	if err != nil {
		t.Errorf("WithParity failed: %v", err)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}

	err = WithFlowControl(FlowControlRTSCTS)(&config)
	if err != nil {
		t.Errorf("WithFlowControl failed: %v", err)
	}
	if config.FlowControl != FlowControlRTSCTS {
		t.Errorf("Expected FlowControl RTSCTS, got %v", config.FlowControl)
	}

	err = WithInitialRTS(true)(&config)
	if err != nil {
		t.Errorf("WithInitialRTS failed: %v", err)
	}
	if config.InitialRTS == nil || !*config.InitialRTS {
		t.Error("Expected InitialRTS true")
	}

	err = WithInitialDTR(false)(&config)
	if err != nil {
		t.Errorf("WithInitialDTR failed: %v", err)
	}
	if config.InitialDTR == nil || *config.InitialDTR {
		t.Error("Expected InitialDTR false")
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"invalid baud rate", WithBaudRate(12345)},
		{"data bits too low", WithDataBits(4)},
		{"data bits too high", WithDataBits(9)},
		{"invalid stop bits", WithStopBits(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			if err := tt.opt(&config); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestBaudRateConstantConfig(t *testing.T) {
	for _, rate := range CommonBaudRates() {
		if _, err := baudRateConstant(rate); err != nil {
			t.Errorf("baudRateConstant(%d) failed: %v", rate, err)
		}
	}

	if _, err := baudRateConstant(12345); err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}
