// Kobayashi Publisher
//
// Connects to an MQTT broker over mutual TLS and publishes a sample signal
// (message_id, timestamp, value, status) at a fixed interval.
//
// Exit status is 0 on a normal exit, including Ctrl+C, and 1 when setup
// fails (missing certificates, bad TLS material, broker unreachable).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/kobayashi-signals/internal/cli"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := cli.NewCommand(config.RolePublisher, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	err := cmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
