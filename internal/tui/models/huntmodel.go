package models

import (
	"context"
	"sync"

	"github.com/serialhunter/serialhunter"
)

// Phase is where a hunt session currently is
type Phase int

const (
	PhaseEnumerating Phase = iota
	PhaseProbing
	PhaseMatched
	PhaseNoMatch
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseEnumerating:
		return "ENUMERATING"
	case PhaseProbing:
		return "PROBING"
	case PhaseMatched:
		return "MATCHED"
	case PhaseNoMatch:
		return "NO MATCH"
	case PhaseError:
		return "ERROR"
	default:
		return "PROBING"
	}
}

// ReportMsg delivers the finished hunt report to the TUI
type ReportMsg struct {
	Report *serialhunter.Report
	Err    error
}

// HuntModel holds the shared state behind the hunt TUI
type HuntModel struct {
	phase  Phase
	report *serialhunter.Report
	infos  map[string]serialhunter.PortInfo
	err    error
	ready  bool

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewHuntModel() *HuntModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &HuntModel{
		phase:  PhaseEnumerating,
		infos:  make(map[string]serialhunter.PortInfo),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *HuntModel) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

func (m *HuntModel) SetPhase(phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

func (m *HuntModel) GetReport() *serialhunter.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

func (m *HuntModel) SetReport(report *serialhunter.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = report
	if report == nil {
		return
	}
	if len(report.Matches) > 0 {
		m.phase = PhaseMatched
	} else {
		m.phase = PhaseNoMatch
	}
}

// GetPortInfos returns a snapshot; the live map keeps changing while a
// hunt goroutine is running
func (m *HuntModel) GetPortInfos() map[string]serialhunter.PortInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make(map[string]serialhunter.PortInfo, len(m.infos))
	for path, info := range m.infos {
		infos[path] = info
	}
	return infos
}

func (m *HuntModel) SetPortInfo(info serialhunter.PortInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos[info.Path] = info
}

func (m *HuntModel) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *HuntModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	if err != nil {
		m.phase = PhaseError
	}
}

func (m *HuntModel) IsReady() bool {
	return m.ready
}

func (m *HuntModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *HuntModel) GetContext() context.Context {
	return m.ctx
}

func (m *HuntModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Restart replaces the session context so a rescan starts clean
func (m *HuntModel) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.phase = PhaseEnumerating
	m.report = nil
	m.err = nil
}
