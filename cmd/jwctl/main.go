// Package main is the entry point for the jwctl CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jumpwire-ai/jwctl/internal/cli"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cli.SetVersionInfo(version, commit, date)
	os.Exit(run(context.Background(), sigChan, cli.ExecuteContext, cli.Cleanup, os.Stderr, os.Exit))
}

// run executes the CLI. The first signal cancels the command's context; a second
// signal, or a command that ignores cancellation for shutdownTimeout, forces exit.
func run(parent context.Context, sigChan <-chan os.Signal, execute func(context.Context) error, cleanup func(), stderr io.Writer, exit func(int)) int {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var signaled atomic.Bool
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			signaled.Store(true)
			fmt.Fprintf(stderr, "\nReceived signal %v, cancelling...\n", sig)
			cancel()
		case <-done:
			return
		}

		shutdownTimer := time.NewTimer(shutdownTimeout)
		defer shutdownTimer.Stop()

		select {
		case <-done:
		case <-shutdownTimer.C:
			fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
			exit(exitInterrupted)
		case sig := <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exit(exitInterrupted)
		}
	}()

	err := execute(ctx)
	close(done)
	cleanup()

	if err == nil {
		return exitOK
	}
	if signaled.Load() || parent.Err() != nil {
		cli.ReportError(stderr, err)
		fmt.Fprintln(stderr, "Operation canceled")
		return exitInterrupted
	}
	cli.ReportError(stderr, err)
	return exitError
}
