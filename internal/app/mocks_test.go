package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockVersions implements ports.VersionSource.
type mockVersions struct {
	mu           sync.Mutex
	latest       domain.Build
	latestErr    error
	running      string
	runningErr   error
	latestCalls  int
	runningCalls int
}

func (m *mockVersions) LatestBuild(ctx context.Context) (domain.Build, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestCalls++
	return m.latest, m.latestErr
}

func (m *mockVersions) RunningBuild(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runningCalls++
	return m.running, m.runningErr
}

func (m *mockVersions) calls() (latest, running int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestCalls, m.runningCalls
}

// credResult scripts one IssueCredential response.
type credResult struct {
	token string
	err   error
}

// mockControl implements ports.ControlClient and records call order.
type mockControl struct {
	mu    sync.Mutex
	calls []string

	cred      []credResult
	credIndex int

	beginErr     error
	info         ports.StreamInfo
	infoErr      error
	killErr      error
	startErr     error
	reinstallErr error
}

func (m *mockControl) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockControl) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

func (m *mockControl) IssueCredential(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "credential")
	res := credResult{token: "tok"}
	if len(m.cred) > 0 {
		i := m.credIndex
		if i >= len(m.cred) {
			i = len(m.cred) - 1
		}
		res = m.cred[i]
		m.credIndex++
	}
	m.mu.Unlock()
	return res.token, res.err
}

func (m *mockControl) BeginUpdate(ctx context.Context, token string) error {
	m.record("begin-update")
	return m.beginErr
}

func (m *mockControl) EventStreamInfo(ctx context.Context) (ports.StreamInfo, error) {
	m.record("stream-info")
	if m.infoErr != nil {
		return ports.StreamInfo{}, m.infoErr
	}
	info := m.info
	if info.URL == "" {
		info = ports.StreamInfo{URL: "wss://console.example.com", Token: "stream-tok"}
	}
	return info, nil
}

func (m *mockControl) LifecycleSignal(ctx context.Context, kind ports.SignalKind) error {
	m.record("signal:" + string(kind))
	if kind == ports.SignalKill {
		return m.killErr
	}
	return m.startErr
}

func (m *mockControl) Reinstall(ctx context.Context) error {
	m.record("reinstall")
	return m.reinstallErr
}

// mockSession implements ports.EventSession with a test-driven event feed.
type mockSession struct {
	mu        sync.Mutex
	events    chan domain.StatusEvent
	sent      [][]byte
	sentCh    chan []byte
	closed    bool
	closeOnce sync.Once
}

func newMockSession() *mockSession {
	return &mockSession{
		events: make(chan domain.StatusEvent, 16),
		sentCh: make(chan []byte, 16),
	}
}

func (m *mockSession) Send(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrSessionClosed
	}
	m.sent = append(m.sent, payload)
	m.mu.Unlock()
	m.sentCh <- payload
	return nil
}

func (m *mockSession) Events() <-chan domain.StatusEvent {
	return m.events
}

func (m *mockSession) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.events)
	})
	return nil
}

func (m *mockSession) emit(ev domain.StatusEvent) {
	m.events <- ev
}

func (m *mockSession) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// awaitSent blocks until the session has transmitted another payload.
func (m *mockSession) awaitSent(t *testing.T) []byte {
	t.Helper()
	select {
	case p := <-m.sentCh:
		return p
	case <-time.After(time.Second):
		t.Fatal("no payload sent before timeout")
		return nil
	}
}

// mockDialer implements ports.SessionDialer.
type mockDialer struct {
	mu      sync.Mutex
	session *mockSession
	err     error
	dials   int
}

func (m *mockDialer) Dial(ctx context.Context, url string) (ports.EventSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dials++
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockDialer) dialCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// mockNotifier implements ports.Notifier.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, message string) {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
}

func (m *mockNotifier) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.messages...)
}

func testTarget() domain.TargetConfig {
	return domain.TargetConfig{
		Name:         "alpha",
		ManifestURL:  "https://builds.example.com/manifest.json",
		ControlURL:   "https://alpha.example.com",
		APIKey:       "key",
		WebhookURL:   "https://hooks.example.com/alpha",
		PollInterval: 5 * time.Millisecond,
	}
}

// newTestOrchestrator builds an orchestrator with short timings.
func newTestOrchestrator(v *mockVersions, c *mockControl, d *mockDialer, n *mockNotifier) *Orchestrator {
	o := NewOrchestrator(testTarget(), v, c, d, n, mockLogger{})
	o.busyRecheck = 5 * time.Millisecond
	o.updateTimeout = 250 * time.Millisecond
	o.killDelay = time.Millisecond
	o.reinstallDelay = time.Millisecond
	o.startDelay = time.Millisecond
	return o
}

func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
