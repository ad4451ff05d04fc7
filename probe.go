package serialhunter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
)

// A Probe examines one candidate port and decides whether the device behind
// it is the one being hunted. Probes that only need enumeration metadata
// must not open the port.
type Probe interface {
	Name() string
	Probe(ctx context.Context, cand *Candidate) (*Match, error)
}

// Candidate is one port under consideration during a hunt
type Candidate struct {
	Info   PortInfo
	opts   []Option
	opener func(string, ...Option) (Port, error)
}

// Open opens the candidate's port with the hunt's serial options
func (c *Candidate) Open() (Port, error) {
	opener := c.opener
	if opener == nil {
		opener = Open
	}
	return opener(c.Info.Path, c.opts...)
}

// Match records a probe hit on a port
type Match struct {
	Port       string  `json:"port"`
	Probe      string  `json:"probe"`
	Confidence float64 `json:"confidence"` // 0..1
	Evidence   string  `json:"evidence"`
}

// portReader adapts a Port to io.Reader for line-oriented probes. VTIME
// reads that return no data are retried until the context is done, at which
// point the reader reports EOF so scanners terminate cleanly.
type portReader struct {
	ctx  context.Context
	port Port
}

func (r *portReader) Read(buf []byte) (int, error) {
	for {
		n, err := r.port.ReadContext(r.ctx, buf)
		if err != nil {
			if r.ctx.Err() != nil {
				return 0, io.EOF
			}
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
		select {
		case <-r.ctx.Done():
			return 0, io.EOF
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// SignatureProbe matches a port purely on its USB metadata. All configured
// fields must match; empty fields are ignored. Matching a unique USB serial
// number is the strongest evidence a hunt can produce.
type SignatureProbe struct {
	VendorID     string
	ProductID    string
	SerialNumber string
	Product      string // substring match, case-insensitive
}

func (p *SignatureProbe) Name() string { return "signature" }

// Empty reports whether no metadata fields are configured
func (p *SignatureProbe) Empty() bool {
	return p.VendorID == "" && p.ProductID == "" && p.SerialNumber == "" && p.Product == ""
}

func (p *SignatureProbe) Probe(_ context.Context, cand *Candidate) (*Match, error) {
	if p.Empty() {
		return nil, ErrInvalidConfig
	}

	info := cand.Info
	var matched []string

	if p.VendorID != "" {
		if !strings.EqualFold(p.VendorID, info.VendorID) {
			return nil, nil
		}
		matched = append(matched, "vid="+info.VendorID)
	}
	if p.ProductID != "" {
		if !strings.EqualFold(p.ProductID, info.ProductID) {
			return nil, nil
		}
		matched = append(matched, "pid="+info.ProductID)
	}
	if p.SerialNumber != "" {
		if p.SerialNumber != info.SerialNumber {
			return nil, nil
		}
		matched = append(matched, "serial="+info.SerialNumber)
	}
	if p.Product != "" {
		if !strings.Contains(strings.ToLower(info.Product), strings.ToLower(p.Product)) {
			return nil, nil
		}
		matched = append(matched, "product="+info.Product)
	}

	confidence := 0.6
	switch {
	case p.SerialNumber != "":
		confidence = 1.0
	case p.VendorID != "" && p.ProductID != "":
		confidence = 0.9
	case p.Product != "":
		confidence = 0.7
	}

	return &Match{
		Port:       info.Path,
		Probe:      p.Name(),
		Confidence: confidence,
		Evidence:   strings.Join(matched, " "),
	}, nil
}

// BannerProbe listens passively for output the device emits on its own
// (boot banners, periodic telemetry) and matches it against a pattern.
type BannerProbe struct {
	Pattern *regexp.Regexp
	Window  time.Duration // how long to listen; defaults to 3s
}

func (p *BannerProbe) Name() string { return "banner" }

func (p *BannerProbe) Probe(ctx context.Context, cand *Candidate) (*Match, error) {
	if p.Pattern == nil {
		return nil, ErrInvalidConfig
	}

	window := p.Window
	if window == 0 {
		window = 3 * time.Second
	}

	port, err := cand.Open()
	if err != nil {
		return nil, err
	}
	defer port.Close()

	port.FlushInput()

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var received []byte
	buf := make([]byte, 512)
	for {
		n, err := ReadAtLeast(ctx, port, buf, 1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil // window closed without a match
			}
			return nil, err
		}
		received = append(received, buf[:n]...)

		if loc := p.Pattern.FindIndex(received); loc != nil {
			return &Match{
				Port:       cand.Info.Path,
				Probe:      p.Name(),
				Confidence: 0.8,
				Evidence:   DecodePretty(received[loc[0]:loc[1]]),
			}, nil
		}
	}
}

// ChallengeProbe writes a challenge to the port and matches the response.
// This is the probe to use for devices with a known query command, e.g.
// "*IDN?" for SCPI instruments or a proprietary handshake byte sequence.
type ChallengeProbe struct {
	Challenge []byte
	Expect    *regexp.Regexp
	Deadline  time.Duration // response deadline; defaults to 2s
}

func (p *ChallengeProbe) Name() string { return "challenge" }

func (p *ChallengeProbe) Probe(ctx context.Context, cand *Candidate) (*Match, error) {
	if len(p.Challenge) == 0 || p.Expect == nil {
		return nil, ErrInvalidConfig
	}

	deadline := p.Deadline
	if deadline == 0 {
		deadline = 2 * time.Second
	}

	port, err := cand.Open()
	if err != nil {
		return nil, err
	}
	defer port.Close()

	port.FlushInput()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if _, err := port.WriteContext(ctx, p.Challenge); err != nil {
		return nil, err
	}
	port.Drain()

	var received []byte
	buf := make([]byte, 512)
	for {
		n, err := ReadAtLeast(ctx, port, buf, 1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return nil, err
		}
		received = append(received, buf[:n]...)

		if loc := p.Expect.FindIndex(received); loc != nil {
			return &Match{
				Port:       cand.Info.Path,
				Probe:      p.Name(),
				Confidence: 0.95,
				Evidence: fmt.Sprintf("%s → %s",
					DecodePretty(p.Challenge), DecodePretty(received[loc[0]:loc[1]])),
			}, nil
		}
	}
}

// ATProbe detects Hayes-compatible modems by sending "AT" and waiting for
// an OK response line.
type ATProbe struct {
	Deadline time.Duration // defaults to 2s
}

func (p *ATProbe) Name() string { return "at" }

var atOKPattern = regexp.MustCompile(`(?m)^\s*(OK|0)\s*$`)

func (p *ATProbe) Probe(ctx context.Context, cand *Candidate) (*Match, error) {
	inner := &ChallengeProbe{
		Challenge: []byte("AT\r\n"),
		Expect:    atOKPattern,
		Deadline:  p.Deadline,
	}

	match, err := inner.Probe(ctx, cand)
	if match != nil {
		match.Probe = p.Name()
		match.Confidence = 0.85
		match.Evidence = "AT → OK"
	}
	return match, err
}

// NMEAProbe identifies GPS receivers by their unsolicited NMEA 0183 output.
// A device must produce MinSentences parseable sentences before it counts;
// requiring more than one guards against line noise that happens to look
// like a sentence.
type NMEAProbe struct {
	MinSentences int           // defaults to 2
	Window       time.Duration // defaults to 3s
}

func (p *NMEAProbe) Name() string { return "nmea" }

func (p *NMEAProbe) Probe(ctx context.Context, cand *Candidate) (*Match, error) {
	minSentences := p.MinSentences
	if minSentences <= 0 {
		minSentences = 2
	}
	window := p.Window
	if window == 0 {
		window = 3 * time.Second
	}

	port, err := cand.Open()
	if err != nil {
		return nil, err
	}
	defer port.Close()

	port.FlushInput()

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	scanner := bufio.NewScanner(&portReader{ctx: ctx, port: port})
	seen := 0
	var firstType string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		s, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		if seen == 0 {
			firstType = s.DataType()
		}
		seen++
		if seen >= minSentences {
			return &Match{
				Port:       cand.Info.Path,
				Probe:      p.Name(),
				Confidence: 0.9,
				Evidence:   fmt.Sprintf("NMEA %s ×%d", firstType, seen),
			}, nil
		}
	}

	return nil, nil
}
