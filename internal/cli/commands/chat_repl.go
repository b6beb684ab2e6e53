package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/budgetquery/internal/cli/config"
)

func runChatREPL(cmd *cobra.Command, s *chatSession, cfg *config.Config) error {
	ctx := cmd.Context()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    newDotCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// Print welcome message
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Budget Query (server: %s)\n", cfg.Server)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Ask a question about the budget. Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		// Ctrl-C while a request is running abandons that request only.
		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit := s.handle(turnCtx, line)
		stop()
		if quit {
			break
		}
		rl.SetPrompt(s.prompt())
	}

	return nil
}

// newDotCompleter creates a readline completer for dot-commands.
func newDotCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(dotCommands))
	for _, c := range dotCommands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}
