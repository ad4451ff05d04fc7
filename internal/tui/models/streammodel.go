package models

import (
	"context"
	"sync"

	"github.com/serialhunter/serialhunter"
)

// ConnectionStatusMsg reports whether the streamed port opened
type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// StreamModel holds the shared state behind the single-port stream TUI
type StreamModel struct {
	port     serialhunter.Port
	portPath string

	connected bool
	err       error
	ready     bool

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewStreamModel(portPath string) *StreamModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &StreamModel{
		portPath: portPath,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *StreamModel) GetPort() serialhunter.Port {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port
}

func (m *StreamModel) SetPort(port serialhunter.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.port = port
}

func (m *StreamModel) GetPortPath() string {
	return m.portPath
}

func (m *StreamModel) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *StreamModel) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *StreamModel) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *StreamModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *StreamModel) IsReady() bool {
	return m.ready
}

func (m *StreamModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *StreamModel) GetContext() context.Context {
	return m.ctx
}

func (m *StreamModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *StreamModel) Cleanup() {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	if m.port != nil {
		m.port.Close()
		m.port = nil
	}
	m.mu.Unlock()
}
