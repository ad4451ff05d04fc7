package serialhunter

import (
	"bytes"
	"context"
	"regexp"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory loopback implementing Port. Bytes queued with
// queueRX are returned from Read; writes are recorded and optionally answered
// by a responder, mimicking a device on the far end of the wire.
type fakePort struct {
	mu        sync.Mutex
	rx        bytes.Buffer
	tx        bytes.Buffer
	responder func([]byte) []byte
	signals   ModemSignals
	closed    bool
}

var _ Port = (*fakePort)(nil)

func (f *fakePort) queueRX(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx.Write(data)
}

func (f *fakePort) written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.tx.Bytes()...)
}

func (f *fakePort) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	// An empty buffer behaves like an expired VTIME read
	if f.rx.Len() == 0 {
		return 0, nil
	}
	return f.rx.Read(buf)
}

func (f *fakePort) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	f.tx.Write(data)
	if f.responder != nil {
		if reply := f.responder(data); len(reply) > 0 {
			f.rx.Write(reply)
		}
	}
	return len(data), nil
}

func (f *fakePort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.Read(buf)
}

func (f *fakePort) WriteContext(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.Write(data)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrPortClosed
	}
	f.closed = true
	return nil
}

func (f *fakePort) Drain() error       { return nil }
func (f *fakePort) FlushInput() error  { return nil }
func (f *fakePort) FlushOutput() error { return nil }

func (f *fakePort) GetModemSignals() (ModemSignals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals, nil
}

func (f *fakePort) SetRTS(state bool) error { f.signals.RTS = state; return nil }
func (f *fakePort) SetDTR(state bool) error { f.signals.DTR = state; return nil }

func (f *fakePort) WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	<-ctx.Done()
	return ModemSignals{}, 0, ctx.Err()
}

// candidateFor wires a fake port into a Candidate
func candidateFor(info PortInfo, port *fakePort) *Candidate {
	return &Candidate{
		Info: info,
		opener: func(string, ...Option) (Port, error) {
			return port, nil
		},
	}
}

func TestSignatureProbe(t *testing.T) {
	info := PortInfo{
		Path:         "/dev/ttyUSB0",
		VendorID:     "0403",
		ProductID:    "6010",
		SerialNumber: "FT123456",
		Product:      "FT2232C Dual USB-UART",
	}

	tests := []struct {
		name       string
		probe      SignatureProbe
		wantMatch  bool
		confidence float64
	}{
		{"serial number match", SignatureProbe{SerialNumber: "FT123456"}, true, 1.0},
		{"vid+pid match", SignatureProbe{VendorID: "0403", ProductID: "6010"}, true, 0.9},
		{"vid case-insensitive", SignatureProbe{VendorID: "0403", ProductID: "6010"}, true, 0.9},
		{"vid only", SignatureProbe{VendorID: "0403"}, true, 0.6},
		{"product substring", SignatureProbe{Product: "dual usb"}, true, 0.7},
		{"wrong serial", SignatureProbe{SerialNumber: "OTHER"}, false, 0},
		{"wrong vid", SignatureProbe{VendorID: "1a86"}, false, 0},
		{"vid right pid wrong", SignatureProbe{VendorID: "0403", ProductID: "7523"}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := &Candidate{Info: info}
			match, err := tt.probe.Probe(context.Background(), cand)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if (match != nil) != tt.wantMatch {
				t.Fatalf("match = %v, wantMatch %v", match, tt.wantMatch)
			}
			if match != nil && match.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, expected %v", match.Confidence, tt.confidence)
			}
		})
	}
}

func TestSignatureProbeEmpty(t *testing.T) {
	probe := &SignatureProbe{}
	cand := &Candidate{Info: PortInfo{Path: "/dev/ttyUSB0"}}
	if _, err := probe.Probe(context.Background(), cand); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for empty probe, got %v", err)
	}
}

func TestChallengeProbe(t *testing.T) {
	port := &fakePort{
		responder: func(data []byte) []byte {
			if bytes.Equal(data, []byte("*IDN?\r\n")) {
				return []byte("ACME Instruments,Model 42,SN999,1.0\r\n")
			}
			return []byte("ERROR\r\n")
		},
	}
	cand := candidateFor(PortInfo{Path: "/dev/ttyUSB1"}, port)

	probe := &ChallengeProbe{
		Challenge: []byte("*IDN?\r\n"),
		Expect:    regexp.MustCompile(`ACME`),
		Deadline:  time.Second,
	}

	match, err := probe.Probe(context.Background(), cand)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected a match")
	}
	if match.Port != "/dev/ttyUSB1" {
		t.Errorf("Match port = %s, expected /dev/ttyUSB1", match.Port)
	}
	if match.Probe != "challenge" {
		t.Errorf("Match probe = %s, expected challenge", match.Probe)
	}
	if !bytes.Equal(port.written(), []byte("*IDN?\r\n")) {
		t.Errorf("Challenge not written, got %q", port.written())
	}
}

func TestChallengeProbeNoResponse(t *testing.T) {
	port := &fakePort{} // silent device
	cand := candidateFor(PortInfo{Path: "/dev/ttyUSB1"}, port)

	probe := &ChallengeProbe{
		Challenge: []byte("PING\r\n"),
		Expect:    regexp.MustCompile(`PONG`),
		Deadline:  100 * time.Millisecond,
	}

	match, err := probe.Probe(context.Background(), cand)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if match != nil {
		t.Errorf("Expected no match from silent device, got %+v", match)
	}
}

func TestChallengeProbeInvalidConfig(t *testing.T) {
	cand := candidateFor(PortInfo{Path: "/dev/ttyUSB1"}, &fakePort{})
	probe := &ChallengeProbe{}
	if _, err := probe.Probe(context.Background(), cand); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestATProbe(t *testing.T) {
	tests := []struct {
		name      string
		reply     []byte
		wantMatch bool
	}{
		{"verbose OK", []byte("AT\r\nOK\r\n"), true},
		{"numeric 0", []byte("0\r\n"), true},
		{"garbage", []byte("\xF8\x01\x02"), false},
		{"error reply", []byte("ERROR\r\n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := tt.reply
			port := &fakePort{
				responder: func([]byte) []byte { return reply },
			}
			cand := candidateFor(PortInfo{Path: "/dev/ttyACM0"}, port)

			probe := &ATProbe{Deadline: 100 * time.Millisecond}
			match, err := probe.Probe(context.Background(), cand)
			if err != nil {
				t.Fatalf("Probe failed: %v", err)
			}
			if (match != nil) != tt.wantMatch {
				t.Fatalf("match = %v, wantMatch %v", match, tt.wantMatch)
			}
			if match != nil && match.Probe != "at" {
				t.Errorf("Match probe = %s, expected at", match.Probe)
			}
		})
	}
}

func TestNMEAProbe(t *testing.T) {
	gga := "$GPGGA,034657.00,5542.3659,N,01257.1739,E,1,09,0.9,12.4,M,39.3,M,,*53\r\n"
	rmc := "$GPRMC,034657.00,A,5542.3659,N,01257.1739,E,0.02,0.0,290826,,,A*6A\r\n"

	t.Run("gps stream matches", func(t *testing.T) {
		port := &fakePort{}
		port.queueRX([]byte(gga + rmc))
		cand := candidateFor(PortInfo{Path: "/dev/ttyACM1"}, port)

		probe := &NMEAProbe{Window: 500 * time.Millisecond}
		match, err := probe.Probe(context.Background(), cand)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if match == nil {
			t.Fatal("Expected a match for NMEA stream")
		}
		if match.Confidence != 0.9 {
			t.Errorf("Confidence = %v, expected 0.9", match.Confidence)
		}
	})

	t.Run("noise does not match", func(t *testing.T) {
		port := &fakePort{}
		port.queueRX([]byte("$garbage,not,nmea\r\nrandom noise\r\n"))
		cand := candidateFor(PortInfo{Path: "/dev/ttyACM1"}, port)

		probe := &NMEAProbe{Window: 200 * time.Millisecond}
		match, err := probe.Probe(context.Background(), cand)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if match != nil {
			t.Errorf("Expected no match for noise, got %+v", match)
		}
	})

	t.Run("single sentence below threshold", func(t *testing.T) {
		port := &fakePort{}
		port.queueRX([]byte(gga))
		cand := candidateFor(PortInfo{Path: "/dev/ttyACM1"}, port)

		probe := &NMEAProbe{Window: 200 * time.Millisecond}
		match, err := probe.Probe(context.Background(), cand)
		if err != nil {
			t.Fatalf("Probe failed: %v", err)
		}
		if match != nil {
			t.Errorf("One sentence should not satisfy the default threshold, got %+v", match)
		}
	})
}

func TestBannerProbe(t *testing.T) {
	port := &fakePort{}
	port.queueRX([]byte("U-Boot 2023.01 (Jan 01 2023)\r\nHit any key\r\n"))
	cand := candidateFor(PortInfo{Path: "/dev/ttyS0"}, port)

	probe := &BannerProbe{
		Pattern: regexp.MustCompile(`U-Boot`),
		Window:  500 * time.Millisecond,
	}

	match, err := probe.Probe(context.Background(), cand)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected a match for banner")
	}
	if match.Evidence != "U-Boot" {
		t.Errorf("Evidence = %q, expected %q", match.Evidence, "U-Boot")
	}
}

func TestBannerProbeWindowExpires(t *testing.T) {
	port := &fakePort{} // nothing arriving
	cand := candidateFor(PortInfo{Path: "/dev/ttyS0"}, port)

	probe := &BannerProbe{
		Pattern: regexp.MustCompile(`anything`),
		Window:  100 * time.Millisecond,
	}

	start := time.Now()
	match, err := probe.Probe(context.Background(), cand)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if match != nil {
		t.Errorf("Expected no match, got %+v", match)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Probe took %v, should respect its window", elapsed)
	}
}
