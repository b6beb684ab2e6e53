package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/budgetquery/internal/cli/config"
	"github.com/leapstack-labs/budgetquery/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser chat",
		Long: `Start a local web server providing the Budget Query chat in the browser.

Every page load starts a new conversation. Conversations nobody has used
for ui.idle_timeout are discarded.`,
		Example: `  # Start on the default port
  budgetquery serve

  # Start on a custom port without opening the browser
  budgetquery serve --port 3000 --no-browser

  # Mount under a path prefix behind a reverse proxy
  budgetquery serve --base-path /BudgetQuery`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().String("base-path", "", "Path prefix to mount the chat under")
	cmd.Flags().String("title", config.DefaultTitle, "Page title")
	cmd.Flags().Bool("no-browser", false, "Don't auto-open browser")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	uiCfg := cc.Cfg.UI

	if uiCfg.SessionSecret == config.DefaultSessionSecret {
		cc.Logger.Warn("using the built-in session secret; set ui.session_secret for shared deployments")
	}

	server := ui.NewServer(ui.Config{
		Service:       cc.Client,
		Port:          uiCfg.Port,
		BasePath:      uiCfg.BasePath,
		Title:         uiCfg.Title,
		SessionSecret: uiCfg.SessionSecret,
		SecureCookies: uiCfg.SecureCookies,
		IdleTimeout:   uiCfg.IdleTimeout,
		PreviewRows:   uiCfg.PreviewRows,
		Logger:        cc.Logger,
	})

	// Open browser if configured
	if uiCfg.AutoOpen {
		go openBrowser(server.URL())
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting Budget Query on %s (service: %s)\n", server.URL(), cc.Client.BaseURL())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
