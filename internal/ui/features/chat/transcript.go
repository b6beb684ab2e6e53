package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/budgetquery/internal/conversation"
	"github.com/leapstack-labs/budgetquery/internal/feedback"
	"github.com/leapstack-labs/budgetquery/internal/ui/notifier"
)

// Update is one change to push to the page: an element patch, a signal
// patch, or both.
type Update struct {
	Element templ.Component
	// Append adds Element to the end of the transcript instead of
	// morphing it by id.
	Append  bool
	Signals map[string]any
}

// Transcript turns conversation events into page updates. Updates are kept
// in order so a stream that connects late still replays everything.
type Transcript struct {
	paths       Paths
	previewRows int
	logger      *slog.Logger
	notifier    *notifier.Notifier

	mu      sync.Mutex
	updates []Update
	forms   map[string]*feedback.Form
}

// NewTranscript creates an empty transcript.
func NewTranscript(p Paths, previewRows int, logger *slog.Logger) *Transcript {
	return &Transcript{
		paths:       p,
		previewRows: previewRows,
		logger:      logger,
		notifier:    notifier.New(),
		forms:       make(map[string]*feedback.Form),
	}
}

// Present implements conversation.Presenter.
func (t *Transcript) Present(e conversation.Event) {
	switch e := e.(type) {
	case conversation.UserEntry:
		t.appendElement(Bubble("user", e.Text))

	case conversation.BusyChanged:
		signals := map[string]any{"busy": e.Busy}
		if !e.Busy {
			signals["input"] = ""
		}
		t.push(Update{Signals: signals})

	case conversation.Typing:
		t.push(Update{Element: Typing(e.On)})

	case conversation.Acknowledgement:
		t.appendElement(Bubble("assistant", e.Text))

	case conversation.ClarifyingQuestion:
		t.appendElement(Bubble("assistant", e.Text))

	case conversation.Apology:
		t.appendElement(Bubble("assistant", e.Text))

	case conversation.ErrorEntry:
		t.appendElement(Bubble("error", e.Message))

	case conversation.ResultEntry:
		t.appendElement(Result(t.paths, e.SQL, e.CSV, t.previewRows))

	case conversation.ObservationsCard:
		t.appendElement(Observations(e.Label, e.Text))

	case conversation.FollowUpPrompt:
		t.addForm(e.Form)
		t.appendElement(FollowUp(t.paths, e.Text, e.Form.View()))

	default:
		t.logger.Debug("event not shown in browser", "type", fmt.Sprintf("%T", e))
	}
}

func (t *Transcript) addForm(f *feedback.Form) {
	t.mu.Lock()
	t.forms[f.ID()] = f
	t.mu.Unlock()

	f.OnChange(func(v feedback.View) {
		t.push(Update{Element: Feedback(t.paths, v)})
	})
}

// Form returns the feedback form with id.
func (t *Transcript) Form(id string) (*feedback.Form, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forms[id]
	return f, ok
}

func (t *Transcript) appendElement(c templ.Component) {
	t.push(Update{Element: c, Append: true})
}

func (t *Transcript) push(u Update) {
	t.mu.Lock()
	t.updates = append(t.updates, u)
	t.mu.Unlock()
	t.notifier.Broadcast()
}

// Since returns the updates after cursor and the new cursor.
func (t *Transcript) Since(cursor int) ([]Update, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cursor >= len(t.updates) {
		return nil, len(t.updates)
	}
	out := make([]Update, len(t.updates)-cursor)
	copy(out, t.updates[cursor:])
	return out, len(t.updates)
}

// Subscribe wakes the caller when updates are pushed.
func (t *Transcript) Subscribe() *notifier.Subscription {
	return t.notifier.Subscribe()
}

// Watchers returns the number of open update streams.
func (t *Transcript) Watchers() int {
	return t.notifier.Len()
}

// Close ends every update stream.
func (t *Transcript) Close() {
	t.notifier.Close()
}

// Send writes u to an SSE stream.
func (u Update) Send(sse *datastar.ServerSentEventGenerator) error {
	if u.Element != nil {
		var opts []datastar.PatchElementOption
		if u.Append {
			opts = append(opts, datastar.WithSelectorID(chatID), datastar.WithModeAppend())
		}
		if err := sse.PatchElementTempl(u.Element, opts...); err != nil {
			return err
		}
	}
	if u.Signals != nil {
		if err := sse.MarshalAndPatchSignals(u.Signals); err != nil {
			return err
		}
	}
	return nil
}
