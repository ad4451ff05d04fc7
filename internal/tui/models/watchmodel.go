package models

import (
	"context"
	"sync"
	"time"
)

// PortEventMsg delivers one arrival/removal event to the watch TUI
type PortEventMsg struct {
	Added   []string
	Removed []string
	At      time.Time
}

// WatchClosedMsg signals that the watcher stopped
type WatchClosedMsg struct {
	Err error
}

// WatchModel holds the shared state behind the watch TUI
type WatchModel struct {
	events int
	err    error
	ready  bool

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewWatchModel() *WatchModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &WatchModel{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *WatchModel) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events
}

func (m *WatchModel) CountEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

func (m *WatchModel) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *WatchModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *WatchModel) IsReady() bool {
	return m.ready
}

func (m *WatchModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *WatchModel) GetContext() context.Context {
	return m.ctx
}

func (m *WatchModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}
