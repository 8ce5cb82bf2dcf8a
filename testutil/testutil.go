// Package testutil provides shared helpers for censorgate tests: bounded
// test contexts, a scriptable detector stub, and an in-memory audit sink.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/censorgate/audit"
	"github.com/BaSui01/censorgate/types"
)

// TestContext returns a context that expires with a generous test timeout.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext returns an already cancelled context.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// StubDetector is a scriptable censor.Detector.
type StubDetector struct {
	// NameVal is returned by Name.
	NameVal string
	// Risk, Reasons, and Err script every detect call.
	Risk    types.RiskLevel
	Reasons []string
	Err     error

	// Gate, when non-nil, holds DetectText open until closed or the call's
	// context is canceled. Entered is signalled once per held call; size it
	// for the expected concurrency.
	Gate    chan struct{}
	Entered chan struct{}

	mu         sync.Mutex
	textCalls  int
	imageCalls int
}

// Name implements censor.Detector.
func (s *StubDetector) Name() string { return s.NameVal }

// DetectText implements censor.Detector.
func (s *StubDetector) DetectText(ctx context.Context, content string) (types.RiskLevel, []string, error) {
	s.mu.Lock()
	s.textCalls++
	s.mu.Unlock()
	if s.Gate != nil {
		s.Entered <- struct{}{}
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return 0, nil, types.NewNetworkError("detect canceled").WithCause(ctx.Err())
		}
	}
	return s.Risk, s.Reasons, s.Err
}

// DetectImage implements censor.Detector.
func (s *StubDetector) DetectImage(ctx context.Context, image string) (types.RiskLevel, []string, error) {
	s.mu.Lock()
	s.imageCalls++
	s.mu.Unlock()
	return s.Risk, s.Reasons, s.Err
}

// Close implements censor.Detector.
func (s *StubDetector) Close() error { return nil }

// Calls returns the text and image call counts.
func (s *StubDetector) Calls() (text, image int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCalls, s.imageCalls
}

// FakeAudit is an in-memory audit.Logger.
type FakeAudit struct {
	// Recent is returned unconditionally from HasRecentLog.
	Recent bool

	mu      sync.Mutex
	entries []audit.Entry
}

// HasRecentLog implements audit.Logger.
func (f *FakeAudit) HasRecentLog(ctx context.Context, fingerprint string, within time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Recent, nil
}

// Add implements audit.Logger.
func (f *FakeAudit) Add(ctx context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

// Close implements audit.Logger.
func (f *FakeAudit) Close() error { return nil }

// Entries returns a snapshot of the recorded entries.
func (f *FakeAudit) Entries() []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]audit.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Len returns the number of recorded entries.
func (f *FakeAudit) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
