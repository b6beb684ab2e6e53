package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/budgetquery/internal/cli/config"
	"github.com/leapstack-labs/budgetquery/internal/conversation"
	"github.com/leapstack-labs/budgetquery/internal/feedback"
	"github.com/leapstack-labs/budgetquery/internal/terminal"
)

// maxLineSize bounds one line of piped input.
const maxLineSize = 1 << 20

// ChatOptions holds options for the chat command.
type ChatOptions struct {
	Download bool
}

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	opts := &ChatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about the budget in the terminal",
		Long: `Chat with the Budget Query service from the terminal.

Questions are translated to SQL by the service, executed, and the result is
previewed as a table. When a question is ambiguous the service asks a
clarifying question and the next line you type is the answer. Once a
question has been answered, later questions are treated as follow-ups.

When invoked without arguments on a terminal, enters interactive mode.
Lines piped on stdin are submitted one by one.`,
		Example: `  # Interactive session
  budgetquery chat

  # Ask one question and save the result as a workbook
  budgetquery chat "total spend by department in 2023" --download

  # Run a scripted conversation
  printf 'total spend by department\nonly IT\n.download\n' | budgetquery chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Download, "download", false, "Save the result workbook after answering the question")

	return cmd
}

func runChat(cmd *cobra.Command, args []string, opts *ChatOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	s := newChatSession(cc.Client, cc.Cfg, cmd.OutOrStdout(), cc.Logger)
	ctx := cmd.Context()

	switch {
	case len(args) > 0:
		s.handle(ctx, strings.Join(args, " "))
		if opts.Download {
			if _, err := s.ctrl.SaveDownload(ctx, s.downloadDir); err != nil {
				return err
			}
		}
		return nil
	case !isTerminal(cmd.InOrStdin()):
		return runChatLines(ctx, s, cmd.InOrStdin())
	default:
		return runChatREPL(cmd, s, cc.Cfg)
	}
}

// chatSession ties a conversation to a terminal presenter and handles
// both questions and dot-commands.
type chatSession struct {
	ctrl        *conversation.Controller
	presenter   *terminal.Presenter
	out         io.Writer
	downloadDir string
	logger      *slog.Logger
}

func newChatSession(svc conversation.Service, cfg *config.Config, out io.Writer, logger *slog.Logger) *chatSession {
	presenter := terminal.New(terminal.Options{
		Out:         out,
		NoColor:     cfg.NoColor,
		PreviewRows: cfg.UI.PreviewRows,
		Logger:      logger,
	})
	return &chatSession{
		ctrl: conversation.New(conversation.Config{
			Service:   svc,
			Presenter: presenter,
			Logger:    logger,
		}),
		presenter:   presenter,
		out:         out,
		downloadDir: cfg.DownloadDir,
		logger:      logger,
	}
}

// handle processes one input line and reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if isDotCommand(line) {
		return s.dotCommand(ctx, line)
	}

	err := s.ctrl.Submit(ctx, line)
	if err != nil && !errors.Is(err, conversation.ErrEmptyMessage) {
		s.presenter.Errorln("Error: " + err.Error())
	}
	return false
}

// dotCommands are the commands the chat intercepts. Any other line, even
// one starting with a dot, is a question.
var dotCommands = []string{".help", ".download", ".sql", ".state", ".good", ".bad", ".clear", ".quit", ".exit"}

func isDotCommand(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && slices.Contains(dotCommands, strings.ToLower(fields[0]))
}

func (s *chatSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printChatHelp(s.out)

	case ".download":
		// failures are shown as transcript errors
		_, _ = s.ctrl.SaveDownload(ctx, s.downloadDir)

	case ".sql":
		if sql := s.ctrl.Result().SQL; sql != "" {
			s.presenter.Println(sql)
		} else {
			s.presenter.Println("No result yet. Ask a question first.")
		}

	case ".state":
		s.printState()

	case ".good", ".bad":
		s.rate(ctx, command == ".good", rest)

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")
	}
	return false
}

// rate submits feedback on the most recent answer.
func (s *chatSession) rate(ctx context.Context, up bool, comment string) {
	form := s.presenter.Form()
	if form == nil {
		s.presenter.Errorln("Nothing to rate yet. Ask a question first.")
		return
	}

	if err := form.Choose(up); err != nil {
		s.presenter.Errorln(err.Error())
		return
	}
	if comment != "" {
		if err := form.SetComment(comment); err != nil {
			s.presenter.Errorln(err.Error())
			return
		}
	}

	err := form.Submit(ctx)
	switch {
	case err == nil:
		s.presenter.Println(feedback.ConfirmationText)
	case errors.Is(err, feedback.ErrAlreadySubmitted), errors.Is(err, feedback.ErrSubmitting):
		s.presenter.Errorln(err.Error())
	default:
		s.logger.Warn("feedback submission failed", "error", err)
		s.presenter.Errorln(feedback.FailureNotice)
	}
}

func (s *chatSession) printState() {
	snap := s.ctrl.Snapshot()

	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Phase", snap.Phase},
		{"Last question", orNone(snap.LastSuccessfulQuery)},
		{"Awaiting clarification", yesNo(snap.AwaitingClarification)},
		{"Original question", orNone(snap.OriginalQuery)},
		{"Observations", snap.Observations},
		{"Questions asked", snap.Turns},
	})
	t.Render()
}

// prompt reflects whether the next line answers a clarifying question.
func (s *chatSession) prompt() string {
	if s.ctrl.Phase() == conversation.PhaseAwaitingClarificationReply {
		return "clarify> "
	}
	return "budget> "
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// runChatLines submits each line of r in turn.
func runChatLines(ctx context.Context, s *chatSession, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if s.handle(ctx, scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func printChatHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .download        Save the current result as an Excel workbook
  .sql             Show the SQL of the current result
  .state           Show the conversation state
  .good [comment]  Rate the last answer as good
  .bad [comment]   Rate the last answer as bad
  .clear           Clear the screen
  .quit / .exit    Exit

Tips:
  - Anything else you type is sent as a question, including lines such
    as ".5m over budget?" that start with a dot
  - After a clarifying question, your next line is the answer
  - Use arrow keys to navigate history
  - Tab completion works for commands
`
	_, _ = fmt.Fprintln(w, help)
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
