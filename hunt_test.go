package serialhunter

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

// fakeSystem wires a Hunter to a simulated set of attached devices
type fakeSystem struct {
	infos map[string]*PortInfo
	ports map[string]*fakePort
}

func (s *fakeSystem) list() ([]string, error) {
	var out []string
	for p := range s.infos {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeSystem) info(path string) (*PortInfo, error) {
	info, ok := s.infos[path]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return info, nil
}

func (s *fakeSystem) open(path string, _ ...Option) (Port, error) {
	port, ok := s.ports[path]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return port, nil
}

func (s *fakeSystem) wire(h *Hunter) {
	h.lister = s.list
	h.infoFor = s.info
	h.opener = s.open
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		infos: make(map[string]*PortInfo),
		ports: make(map[string]*fakePort),
	}
}

func (s *fakeSystem) attach(path string, info PortInfo, port *fakePort) {
	info.Path = path
	s.infos[path] = &info
	s.ports[path] = port
}

func TestHuntFindsDeviceBySignature(t *testing.T) {
	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{VendorID: "1a86", ProductID: "7523"}, &fakePort{})
	sys.attach("/dev/ttyUSB1", PortInfo{VendorID: "0403", ProductID: "6010", SerialNumber: "FT123456"}, &fakePort{})
	sys.attach("/dev/ttyUSB2", PortInfo{VendorID: "0403", ProductID: "6001"}, &fakePort{})

	hunter := NewHunter(
		WithProbes(&SignatureProbe{SerialNumber: "FT123456"}),
	)
	sys.wire(hunter)

	report, err := hunter.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}

	best := report.Best()
	if best == nil {
		t.Fatal("Expected a match")
	}
	if best.Port != "/dev/ttyUSB1" {
		t.Errorf("Best match port = %s, expected /dev/ttyUSB1", best.Port)
	}
	if best.Confidence != 1.0 {
		t.Errorf("Confidence = %v, expected 1.0", best.Confidence)
	}
	if report.SessionID == "" {
		t.Error("Report should carry a session ID")
	}
	if len(report.Candidates) != 3 {
		t.Errorf("Candidates = %d, expected 3", len(report.Candidates))
	}
}

func TestHuntFindsDeviceByChallenge(t *testing.T) {
	quiet := &fakePort{}
	chatty := &fakePort{
		responder: func(data []byte) []byte {
			if bytes.Contains(data, []byte("WHO")) {
				return []byte("WIDGET v2.1\r\n")
			}
			return nil
		},
	}

	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{}, quiet)
	sys.attach("/dev/ttyUSB1", PortInfo{}, chatty)

	hunter := NewHunter(
		WithProbes(&ChallengeProbe{
			Challenge: []byte("WHO\r\n"),
			Expect:    regexp.MustCompile(`WIDGET`),
			Deadline:  200 * time.Millisecond,
		}),
		WithPerPortTimeout(time.Second),
	)
	sys.wire(hunter)

	report, err := hunter.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}

	best := report.Best()
	if best == nil {
		t.Fatal("Expected a match")
	}
	if best.Port != "/dev/ttyUSB1" {
		t.Errorf("Best match port = %s, expected /dev/ttyUSB1", best.Port)
	}
}

func TestHuntMatchOrdering(t *testing.T) {
	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{VendorID: "0403"}, &fakePort{})
	sys.attach("/dev/ttyUSB1", PortInfo{VendorID: "0403", ProductID: "6010"}, &fakePort{})
	sys.attach("/dev/ttyUSB2", PortInfo{VendorID: "0403"}, &fakePort{})

	hunter := NewHunter(
		WithProbes(
			&SignatureProbe{VendorID: "0403"},
			&SignatureProbe{VendorID: "0403", ProductID: "6010"},
		),
	)
	sys.wire(hunter)

	report, err := hunter.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}

	if len(report.Matches) != 4 {
		t.Fatalf("Matches = %d, expected 4", len(report.Matches))
	}

	// Highest confidence first, then port path for equal confidence
	if report.Matches[0].Port != "/dev/ttyUSB1" || report.Matches[0].Confidence != 0.9 {
		t.Errorf("First match = %+v, expected ttyUSB1 at 0.9", report.Matches[0])
	}
	for i := 1; i < len(report.Matches); i++ {
		a, b := report.Matches[i-1], report.Matches[i]
		if a.Confidence < b.Confidence {
			t.Errorf("Matches out of order: %v before %v", a, b)
		}
		if a.Confidence == b.Confidence && a.Port > b.Port {
			t.Errorf("Equal-confidence matches not sorted by port: %s before %s", a.Port, b.Port)
		}
	}
}

func TestHuntNoProbes(t *testing.T) {
	hunter := NewHunter()
	if _, err := hunter.Hunt(context.Background()); err != ErrNoProbes {
		t.Errorf("Expected ErrNoProbes, got %v", err)
	}
}

func TestHuntNoPorts(t *testing.T) {
	hunter := NewHunter(WithProbes(&SignatureProbe{VendorID: "0403"}))
	hunter.lister = func() ([]string, error) { return nil, nil }

	if _, err := hunter.Hunt(context.Background()); err != ErrNoPorts {
		t.Errorf("Expected ErrNoPorts, got %v", err)
	}
}

func TestHuntExplicitPorts(t *testing.T) {
	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{VendorID: "0403"}, &fakePort{})
	sys.attach("/dev/ttyUSB1", PortInfo{VendorID: "0403"}, &fakePort{})

	hunter := NewHunter(
		WithProbes(&SignatureProbe{VendorID: "0403"}),
		WithPorts("/dev/ttyUSB1"),
	)
	sys.wire(hunter)

	report, err := hunter.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}

	if len(report.Matches) != 1 || report.Matches[0].Port != "/dev/ttyUSB1" {
		t.Errorf("Expected single match on ttyUSB1, got %+v", report.Matches)
	}
}

func TestHuntCollectsErrors(t *testing.T) {
	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{}, &fakePort{})

	failing := NewHunter(
		WithProbes(&ChallengeProbe{
			Challenge: []byte("X"),
			Expect:    regexp.MustCompile(`Y`),
			Deadline:  100 * time.Millisecond,
		}),
	)
	sys.wire(failing)
	// Opening any port fails
	failing.opener = func(string, ...Option) (Port, error) {
		return nil, ErrPermissionDenied
	}

	report, err := failing.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}

	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %d, expected 1", len(report.Errors))
	}
	if !errors.Is(report.Errors[0].Err, ErrPermissionDenied) {
		t.Errorf("Error = %v, expected ErrPermissionDenied", report.Errors[0].Err)
	}
	if report.Best() != nil {
		t.Error("No match expected when every open fails")
	}
}

func TestHuntHonorsPerPortTimeout(t *testing.T) {
	// A device that never answers must not stall the hunt beyond the
	// per-port budget
	sys := newFakeSystem()
	sys.attach("/dev/ttyUSB0", PortInfo{}, &fakePort{})

	hunter := NewHunter(
		WithProbes(&BannerProbe{
			Pattern: regexp.MustCompile(`never`),
			Window:  time.Minute, // probe would wait far longer on its own
		}),
		WithPerPortTimeout(150*time.Millisecond),
	)
	sys.wire(hunter)

	start := time.Now()
	report, err := hunter.Hunt(context.Background())
	if err != nil {
		t.Fatalf("Hunt failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Hunt took %v, per-port timeout not enforced", elapsed)
	}
	if report.Best() != nil {
		t.Error("Expected no match")
	}
}

func TestHuntContextCancellation(t *testing.T) {
	sys := newFakeSystem()
	for _, p := range []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2"} {
		sys.attach(p, PortInfo{}, &fakePort{})
	}

	hunter := NewHunter(
		WithProbes(&BannerProbe{Pattern: regexp.MustCompile(`never`), Window: time.Minute}),
		WithParallelism(1),
		WithPerPortTimeout(time.Minute),
	)
	sys.wire(hunter)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := hunter.Hunt(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}
