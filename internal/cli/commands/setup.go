// Package commands implements the budgetquery subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/budgetquery/internal/backend"
	"github.com/leapstack-labs/budgetquery/internal/cli/config"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Client *backend.Client
}

// NewCommandContext loads the command's config and logger and creates a
// service client from them.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	client, err := backend.New(backend.Config{
		BaseURL: cfg.Server,
		Timeout: cfg.RequestTimeout,
		Logger:  logger.With("component", "backend"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service client: %w", err)
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Client: client,
	}, nil
}
