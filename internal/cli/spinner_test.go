package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDraws(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Rendering...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(out.String(), "Rendering...") {
		t.Errorf("spinner output %q missing message", out.String())
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after Stop")
	}
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerTo(ctx, &syncBuffer{}, "Working...")
	s.Start()
	cancel()
	time.Sleep(50 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s := newSpinnerTo(ctx, &syncBuffer{}, "Working...")
	s.Start()
	time.Sleep(80 * time.Millisecond)
	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context timeout")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinnerTo(context.Background(), &syncBuffer{}, "Working...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}
