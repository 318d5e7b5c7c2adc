package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jumpwire-ai/jwctl/internal/approval/domain"
	"github.com/jumpwire-ai/jwctl/internal/cli"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_Success(t *testing.T) {
	out := &lockedBuffer{}
	cleaned := false
	code := run(context.Background(), nil, func(context.Context) error { return nil }, func() { cleaned = true }, out, func(int) {})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !cleaned {
		t.Error("cleanup not called")
	}
	if out.String() != "" {
		t.Fatalf("stderr not empty: %q", out.String())
	}
}

func TestRun_Error(t *testing.T) {
	out := &lockedBuffer{}
	code := run(context.Background(), nil, func(context.Context) error {
		return errors.New("boom")
	}, func() {}, out, func(int) {})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "boom") {
		t.Fatalf("stderr = %q, want error output", out.String())
	}
}

func TestRun_OutcomeNotReprinted(t *testing.T) {
	out := &lockedBuffer{}
	code := run(context.Background(), nil, func(context.Context) error {
		return &cli.OutcomeError{Result: domain.Result{State: domain.TerminalConflict}}
	}, func() {}, out, func(int) {})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out.String() != "" {
		t.Fatalf("stderr = %q, want nothing", out.String())
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	out := &lockedBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := run(ctx, nil, func(context.Context) error {
		return errors.New("interrupted")
	}, func() {}, out, func(int) {})
	if code != 130 {
		t.Fatalf("exit code = %d, want 130", code)
	}
	if !strings.Contains(out.String(), "Operation canceled") {
		t.Fatalf("stderr = %q, want cancel output", out.String())
	}
}

func TestRun_SignalCancelsContext(t *testing.T) {
	out := &lockedBuffer{}
	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt

	code := run(context.Background(), sigChan, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, func() {}, out, func(int) {})
	if code != 130 {
		t.Fatalf("exit code = %d, want 130", code)
	}
	if !strings.Contains(out.String(), "Received signal interrupt") {
		t.Fatalf("stderr = %q, want signal output", out.String())
	}
}

func TestRun_SecondSignalForcesExit(t *testing.T) {
	out := &lockedBuffer{}
	sigChan := make(chan os.Signal)
	forced := make(chan int, 1)

	code := run(context.Background(), sigChan, func(ctx context.Context) error {
		sigChan <- os.Interrupt
		<-ctx.Done()
		// ignore cancellation until forced out
		sigChan <- os.Interrupt
		<-forced
		return ctx.Err()
	}, func() {}, out, func(c int) { forced <- c })

	if code != 130 {
		t.Fatalf("exit code = %d, want 130", code)
	}
	if !strings.Contains(out.String(), "second signal") {
		t.Fatalf("stderr = %q, want forced exit output", out.String())
	}
}
