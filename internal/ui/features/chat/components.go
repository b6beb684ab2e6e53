package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/budgetquery/internal/feedback"
	"github.com/leapstack-labs/budgetquery/internal/markup"
	"github.com/leapstack-labs/budgetquery/internal/resultset"
	"github.com/leapstack-labs/budgetquery/internal/ui/resources"
)

// Element ids patched by the update stream.
const (
	chatID   = "chat"
	typingID = "typing"
)

// Paths builds the URLs of one conversation.
type Paths struct {
	Base string
	ID   string
}

func (p Paths) conversation(suffix string) string {
	return strings.TrimRight(p.Base, "/") + "/c/" + p.ID + suffix
}

// Updates is the SSE stream URL.
func (p Paths) Updates() string { return p.conversation("/updates") }

// Send is the submit URL.
func (p Paths) Send() string { return p.conversation("/send") }

// Download is the workbook URL.
func (p Paths) Download() string { return p.conversation("/download") }

// Thumb is the sentiment URL of a feedback form.
func (p Paths) Thumb(formID string, up bool) string {
	dir := "down"
	if up {
		dir = "up"
	}
	return p.conversation("/feedback/" + formID + "/thumb/" + dir)
}

// SubmitFeedback is the submit URL of a feedback form.
func (p Paths) SubmitFeedback(formID string) string {
	return p.conversation("/feedback/" + formID + "/submit")
}

// fragment writes HTML and remembers the first error.
type fragment struct {
	w   io.Writer
	err error
}

func (f *fragment) printf(format string, args ...any) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, format, args...)
}

func component(render func(f *fragment)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		f := &fragment{w: w}
		render(f)
		return f.err
	})
}

// Page is the document shell of a new conversation. The transcript is
// filled by the update stream.
func Page(title string, p Paths) templ.Component {
	return component(func(f *fragment) {
		f.printf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="%s">
<script type="module" src="%s"></script>
</head>
<body data-signals="%s" data-init="@get('%s')">
<header>%s</header>
<main>
<div id="%s"></div>
<div id="%s" hidden></div>
</main>
<form class="composer" data-on:submit__prevent="!$busy &amp;&amp; $input.trim() &amp;&amp; @post('%s')">
<input type="text" placeholder="Ask a question about the budget…" autocomplete="off" autofocus data-bind="input" data-attr:disabled="$busy">
<button type="submit" data-attr:disabled="$busy || !$input.trim()">Send</button>
</form>
</body>
</html>
`,
			markup.Escape(title),
			markup.Escape(resources.StaticPath(p.Base, "chat.css")),
			markup.Escape(resources.DatastarScript),
			markup.Escape(`{"input":"","busy":false,"comments":{}}`),
			markup.Escape(p.Updates()),
			markup.Escape(title),
			chatID,
			typingID,
			markup.Escape(p.Send()),
		)
	})
}

// Bubble is one chat line. kind is "user", "assistant" or "error".
func Bubble(kind, text string) templ.Component {
	return component(func(f *fragment) {
		f.printf(`<div class="bubble %s">%s</div>`, kind, markup.Escape(text))
	})
}

// Typing shows or hides the typing indicator.
func Typing(on bool) templ.Component {
	return component(func(f *fragment) {
		if on {
			f.printf(`<div id="%s">Typing…</div>`, typingID)
			return
		}
		f.printf(`<div id="%s" hidden></div>`, typingID)
	})
}

// Result shows the executed SQL, a preview of the rows and the download
// link. The link always fetches the current result.
func Result(p Paths, sql, csv string, previewRows int) templ.Component {
	return component(func(f *fragment) {
		f.printf(`<div class="card result"><details><summary>SQL</summary><pre>%s</pre></details>`, markup.Escape(sql))
		writePreview(f, csv, previewRows)
		f.printf(`<a class="download" href="%s">Download as Excel</a></div>`, markup.Escape(p.Download()))
	})
}

func writePreview(f *fragment, csv string, previewRows int) {
	rs, err := resultset.Parse(csv)
	if err != nil {
		f.printf(`<p class="muted">Result preview unavailable.</p>`)
		return
	}
	if rs.Empty() {
		f.printf(`<p class="muted">(0 rows)</p>`)
		return
	}

	f.printf(`<table class="preview"><thead><tr>`)
	for _, col := range rs.Columns {
		f.printf(`<th>%s</th>`, markup.Escape(col))
	}
	f.printf(`</tr></thead><tbody>`)
	rows, more := rs.Head(previewRows)
	for _, row := range rows {
		f.printf(`<tr>`)
		for _, cell := range row {
			f.printf(`<td>%s</td>`, markup.Escape(cell))
		}
		f.printf(`</tr>`)
	}
	f.printf(`</tbody></table>`)
	if more {
		f.printf(`<p class="muted">Showing %d of %d rows.</p>`, len(rows), len(rs.Rows))
	}
}

// Observations is the AI-generated summary card.
func Observations(label, text string) templ.Component {
	return component(func(f *fragment) {
		f.printf(`<div class="card observations"><div class="label">%s</div><div>%s</div></div>`,
			markup.Escape(label), markup.Escape(text))
	})
}

// FollowUp is the follow-up invitation with its feedback form.
func FollowUp(p Paths, text string, v feedback.View) templ.Component {
	return component(func(f *fragment) {
		f.printf(`<div class="bubble assistant">%s`, markup.Escape(text))
		writeFeedback(f, p, v)
		f.printf(`</div>`)
	})
}

// Feedback renders a feedback form on its own, for morphing in place.
func Feedback(p Paths, v feedback.View) templ.Component {
	return component(func(f *fragment) {
		writeFeedback(f, p, v)
	})
}

// formElementID is the DOM id of a form.
func formElementID(formID string) string {
	return "feedback-" + formID
}

// commentSignal is the signal holding the comment of a form.
func commentSignal(formID string) string {
	return "f" + strings.ReplaceAll(formID, "-", "")
}

func writeFeedback(f *fragment, p Paths, v feedback.View) {
	f.printf(`<div class="feedback" id="%s">`, formElementID(v.ID))

	if v.State == feedback.StateSubmitted {
		f.printf(`<span class="confirmed">%s</span></div>`, markup.Escape(feedback.ConfirmationText))
		return
	}

	up := v.ThumbsUp != nil && *v.ThumbsUp
	down := v.ThumbsUp != nil && !*v.ThumbsUp
	disabled := ""
	if v.State == feedback.StateSubmitting {
		disabled = " disabled"
	}
	f.printf(`<div><button type="button"%s%s data-on:click="@post('%s')" title="Good answer">👍</button> `,
		chosenClass(up), disabled, markup.Escape(p.Thumb(v.ID, true)))
	f.printf(`<button type="button"%s%s data-on:click="@post('%s')" title="Bad answer">👎</button></div>`,
		chosenClass(down), disabled, markup.Escape(p.Thumb(v.ID, false)))

	if v.CommentVisible() {
		signal := "comments." + commentSignal(v.ID)
		initial, _ := json.Marshal(map[string]map[string]string{
			"comments": {commentSignal(v.ID): v.Comment},
		})
		f.printf(`<textarea rows="2" placeholder="%s" data-signals__ifmissing="%s" data-bind="%s"%s></textarea>`,
			markup.Escape(feedback.CommentHint), markup.Escape(string(initial)), signal, disabled)

		submit := " disabled"
		if v.SubmitEnabled() {
			submit = ""
		}
		f.printf(`<div><button type="button"%s data-on:click="@post('%s')">Submit feedback</button></div>`,
			submit, markup.Escape(p.SubmitFeedback(v.ID)))
	}

	if v.Notice != "" {
		f.printf(`<span class="notice">%s</span>`, markup.Escape(v.Notice))
	}
	f.printf(`</div>`)
}

func chosenClass(chosen bool) string {
	if chosen {
		return ` class="chosen"`
	}
	return ""
}
