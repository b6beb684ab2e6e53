package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/budgetquery/internal/conversation"
	"github.com/leapstack-labs/budgetquery/internal/feedback"
	"github.com/leapstack-labs/budgetquery/internal/resultset"
)

// FeedbackHint is printed under every follow-up prompt.
const FeedbackHint = "Rate this answer with .good or .bad, optionally followed by a comment."

// Options configures a Presenter.
type Options struct {
	Out     io.Writer
	NoColor bool
	// PreviewRows limits the inline result table. Zero means the default.
	PreviewRows int
	Logger      *slog.Logger
}

// Presenter writes conversation events to a terminal.
type Presenter struct {
	out         io.Writer
	styles      *Styles
	tty         bool
	previewRows int
	logger      *slog.Logger

	mu     sync.Mutex
	typing bool
	form   *feedback.Form
}

// New creates a Presenter.
func New(opts Options) *Presenter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rows := opts.PreviewRows
	if rows == 0 {
		rows = resultset.DefaultPreviewRows
	}

	return &Presenter{
		out:         opts.Out,
		styles:      NewStyles(newRenderer(opts.Out, opts.NoColor)),
		tty:         IsTTY(opts.Out),
		previewRows: rows,
		logger:      logger,
	}
}

// Form returns the feedback form of the most recent follow-up prompt.
func (p *Presenter) Form() *feedback.Form {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form
}

// Present implements conversation.Presenter.
func (p *Presenter) Present(e conversation.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := e.(type) {
	case conversation.UserEntry:
		// readline already echoed the line on a terminal
		if !p.tty {
			p.println(p.styles.User.Render("> " + e.Text))
		}

	case conversation.BusyChanged:
		if !e.Busy {
			p.println("")
		}

	case conversation.Typing:
		p.setTyping(e.On)

	case conversation.Acknowledgement:
		p.println(p.styles.Assistant.Render(e.Text))

	case conversation.ClarifyingQuestion:
		p.println(p.styles.Assistant.Render(e.Text))

	case conversation.Apology:
		p.println(p.styles.Assistant.Render(e.Text))

	case conversation.ErrorEntry:
		p.println(p.styles.Error.Render("Error: " + e.Message))

	case conversation.ResultEntry:
		p.renderResult(e)

	case conversation.ObservationsCard:
		p.println(p.styles.Label.Render(e.Label))
		for _, line := range strings.Split(strings.TrimSpace(e.Text), "\n") {
			p.println("  " + line)
		}

	case conversation.FollowUpPrompt:
		p.form = e.Form
		p.println(p.styles.Assistant.Render(e.Text))
		p.println(p.styles.Muted.Render(FeedbackHint))

	case conversation.DownloadSaved:
		p.println(p.styles.Success.Render(fmt.Sprintf("Saved %s (%s rows)", e.Path, humanize.Comma(int64(e.Rows)))))

	default:
		p.logger.Debug("unhandled event", "type", fmt.Sprintf("%T", e))
	}
}

// Println writes a plain line, clearing the typing indicator first.
func (p *Presenter) Println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(s)
}

// Errorln writes an error line.
func (p *Presenter) Errorln(s string) {
	p.Println(p.styles.Error.Render(s))
}

func (p *Presenter) println(s string) {
	p.setTyping(false)
	_, _ = fmt.Fprintln(p.out, s)
}

// setTyping draws or erases the indicator. Nothing is drawn when the
// output is not a terminal.
func (p *Presenter) setTyping(on bool) {
	if !p.tty || on == p.typing {
		return
	}
	p.typing = on
	if on {
		_, _ = fmt.Fprint(p.out, p.styles.Muted.Render("…"))
		return
	}
	_, _ = fmt.Fprint(p.out, "\r\x1b[2K")
}

func (p *Presenter) renderResult(e conversation.ResultEntry) {
	p.println(p.styles.Muted.Render("SQL:"))
	for _, line := range strings.Split(strings.TrimSpace(e.SQL), "\n") {
		p.println(p.styles.SQL.Render(line))
	}

	rs, err := resultset.Parse(e.CSV)
	if err != nil {
		p.logger.Debug("result preview unavailable", "error", err)
		p.println(p.styles.Muted.Render("(result preview unavailable)"))
		p.println(p.styles.Muted.Render("Type .download to save the result as an Excel workbook."))
		return
	}

	p.renderTable(rs)
	p.println(p.styles.Muted.Render("Type .download to save the result as an Excel workbook."))
}

func (p *Presenter) renderTable(rs *resultset.Table) {
	if rs.Empty() {
		p.println("(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	rows, more := rs.Head(p.previewRows)
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	p.setTyping(false)
	t.Render()

	if more {
		p.println(fmt.Sprintf("(%s of %s rows)", humanize.Comma(int64(len(rows))), humanize.Comma(int64(len(rs.Rows)))))
		return
	}
	p.println(fmt.Sprintf("(%s rows)", humanize.Comma(int64(len(rs.Rows)))))
}
