package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/kobayashi-signals/internal/app"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
)

// BuildInfo is set at build time via ldflags in each main package.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Runner runs one client role until ctx is cancelled.
type Runner func(ctx context.Context, cfg *config.Config, logger *logging.Logger, version string) error

// NewCommand returns the root command for role.
func NewCommand(role config.Role, info BuildInfo) *cobra.Command {
	run := app.RunPublisher
	if role == config.RoleSubscriber {
		run = app.RunSubscriber
	}
	return newCommand(role, info, run)
}

func newCommand(role config.Role, info BuildInfo, run Runner) *cobra.Command {
	name := ServiceName(role)

	cmd := &cobra.Command{
		Use:           name,
		Short:         short(role),
		Version:       fmt.Sprintf("%s (commit %s, built %s)", info.Version, info.Commit, info.Date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := config.BindFlags(cmd.Flags(), role)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := flags.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger := logging.New(cfg.Logging, name, info.Version)
		logger.Info("starting "+name,
			"version", info.Version,
			"commit", info.Commit,
			"build_date", info.Date,
			"topic", cfg.Topic,
		)

		return run(cmd.Context(), cfg, logger, info.Version)
	}

	return cmd
}

// ServiceName is the binary and log service name for role.
func ServiceName(role config.Role) string {
	return "kobayashi-" + string(role)
}

func short(role config.Role) string {
	if role == config.RoleSubscriber {
		return "Subscribe to an MQTT topic over mutual TLS and log incoming signals"
	}
	return "Publish sample signals to an MQTT topic over mutual TLS"
}
