package serialhunter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hunter runs a set of probes against every candidate serial port on the
// system and reports which port the hunted device answered on.
type Hunter struct {
	probes         []Probe
	portOpts       []Option
	parallelism    int
	perPortTimeout time.Duration
	explicitPorts  []string

	// Injection points for tests
	lister  func() ([]string, error)
	infoFor func(string) (*PortInfo, error)
	opener  func(string, ...Option) (Port, error)
}

// HunterOption configures a Hunter
type HunterOption func(*Hunter)

// WithProbes sets the probes to run, in order, on each candidate
func WithProbes(probes ...Probe) HunterOption {
	return func(h *Hunter) { h.probes = append(h.probes, probes...) }
}

// WithPortOptions sets the serial options used when probes open candidates
func WithPortOptions(opts ...Option) HunterOption {
	return func(h *Hunter) { h.portOpts = append(h.portOpts, opts...) }
}

// WithParallelism bounds how many ports are probed concurrently.
// Defaults to 4; pass 1 to probe strictly one port at a time.
func WithParallelism(n int) HunterOption {
	return func(h *Hunter) {
		if n > 0 {
			h.parallelism = n
		}
	}
}

// WithPerPortTimeout bounds the total time spent on a single candidate so a
// hung device cannot stall the hunt. Defaults to 5s.
func WithPerPortTimeout(d time.Duration) HunterOption {
	return func(h *Hunter) {
		if d > 0 {
			h.perPortTimeout = d
		}
	}
}

// WithPorts restricts the hunt to an explicit set of port paths instead of
// enumerating the system
func WithPorts(ports ...string) HunterOption {
	return func(h *Hunter) { h.explicitPorts = append(h.explicitPorts, ports...) }
}

// NewHunter creates a Hunter
func NewHunter(opts ...HunterOption) *Hunter {
	h := &Hunter{
		parallelism:    4,
		perPortTimeout: 5 * time.Second,
		lister:         ListPorts,
		infoFor:        GetPortInfo,
		opener:         Open,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProbeError records a probe failure on one port. Failures are collected
// rather than aborting the hunt: a port that cannot even be opened is simply
// not the device we are looking for.
type ProbeError struct {
	Port  string `json:"port"`
	Probe string `json:"probe"`
	Err   error  `json:"-"`
	Error string `json:"error"`
}

// Report is the outcome of one hunt session
type Report struct {
	SessionID  string        `json:"session_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates []string      `json:"candidates"`
	Matches    []Match       `json:"matches"`
	Errors     []ProbeError  `json:"errors,omitempty"`
}

// Best returns the highest-confidence match, or nil when nothing matched
func (r *Report) Best() *Match {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// Hunt probes all candidates and returns the session report. The report is
// returned even when no port matched; returns ErrNoProbes or ErrNoPorts when
// the hunt cannot run at all.
func (h *Hunter) Hunt(ctx context.Context) (*Report, error) {
	if len(h.probes) == 0 {
		return nil, ErrNoProbes
	}

	ports := h.explicitPorts
	if len(ports) == 0 {
		var err error
		ports, err = h.lister()
		if err != nil {
			return nil, err
		}
	}
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}

	report := &Report{
		SessionID:  uuid.NewString(),
		StartedAt:  time.Now(),
		Candidates: ports,
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, h.parallelism)
	)

	for _, portPath := range ports {
		wg.Add(1)
		go func(portPath string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			matches, errs := h.probePort(ctx, portPath)

			mu.Lock()
			report.Matches = append(report.Matches, matches...)
			report.Errors = append(report.Errors, errs...)
			mu.Unlock()
		}(portPath)
	}

	wg.Wait()
	report.Duration = time.Since(report.StartedAt)

	// Strongest evidence first, port path breaks ties
	sort.Slice(report.Matches, func(i, j int) bool {
		a, b := report.Matches[i], report.Matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Port < b.Port
	})

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// probePort runs every probe against one candidate, sequentially so probes
// never fight over the same device
func (h *Hunter) probePort(ctx context.Context, portPath string) ([]Match, []ProbeError) {
	ctx, cancel := context.WithTimeout(ctx, h.perPortTimeout)
	defer cancel()

	info, err := h.infoFor(portPath)
	if err != nil {
		return nil, []ProbeError{{Port: portPath, Probe: "enumerate", Err: err, Error: err.Error()}}
	}

	cand := &Candidate{
		Info:   *info,
		opts:   h.portOpts,
		opener: h.opener,
	}

	var matches []Match
	var errs []ProbeError

	for _, probe := range h.probes {
		if ctx.Err() != nil {
			break
		}

		match, err := probe.Probe(ctx, cand)
		if err != nil {
			errs = append(errs, ProbeError{Port: portPath, Probe: probe.Name(), Err: err, Error: err.Error()})
			continue
		}
		if match != nil {
			matches = append(matches, *match)
		}
	}

	return matches, errs
}
