package compute

import (
	"context"
	"strconv"
	"sync"
)

// Memory is an in-process Controller that records every call. Setting
// one of the *Err fields makes the matching call fail.
type Memory struct {
	GetErr   error
	SetErr   error
	StartErr error

	mu      sync.Mutex
	version int
	items   []Item
	sets    int
	starts  int
	calls   []string
}

func NewMemory(initial ...Item) *Memory {
	return &Memory{items: append([]Item(nil), initial...)}
}

func (m *Memory) Metadata(ctx context.Context) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "get")
	if m.GetErr != nil {
		return Metadata{}, m.GetErr
	}
	return Metadata{Fingerprint: m.fingerprint(), Items: append([]Item(nil), m.items...)}, nil
}

func (m *Memory) SetMetadata(ctx context.Context, fingerprint string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "set")
	if m.SetErr != nil {
		return m.SetErr
	}
	if fingerprint != m.fingerprint() {
		return ErrStaleFingerprint
	}
	m.items = append([]Item(nil), items...)
	m.version++
	m.sets++
	return nil
}

func (m *Memory) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "start")
	if m.StartErr != nil {
		return m.StartErr
	}
	m.starts++
	return nil
}

func (m *Memory) fingerprint() string {
	return "fp-" + strconv.Itoa(m.version)
}

// Snapshot returns the current metadata as the worker would see it.
func (m *Memory) Snapshot() Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metadata{Fingerprint: m.fingerprint(), Items: append([]Item(nil), m.items...)}
}

// Counts reports successful set-metadata and start calls.
func (m *Memory) Counts() (sets, starts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets, m.starts
}

// Calls lists every call in order, successful or not.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
