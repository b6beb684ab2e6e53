// Package feedback implements the thumbs up/down form attached to each
// follow-up prompt.
//
// A Form is bound to the question of the turn that produced it. The comment
// field only becomes available once a sentiment has been chosen, and the
// form is submitted at most once: after a successful submission it is
// permanently confirmed, after a failed one it becomes editable again so
// the user can retry by hand.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/budgetquery/internal/backend"
)

// User-facing texts.
const (
	ConfirmationText = "✓ Thank you for your feedback!"
	FailureNotice    = "Failed to submit feedback. Please try again."
	CommentHint      = "Any additional feedback?"
)

var (
	// ErrNoSentiment is returned when a comment or submission precedes a choice.
	ErrNoSentiment = errors.New("choose thumbs up or thumbs down first")
	// ErrSubmitting is returned while a submission is in flight.
	ErrSubmitting = errors.New("feedback is being submitted")
	// ErrAlreadySubmitted is returned once the form has been confirmed.
	ErrAlreadySubmitted = errors.New("feedback already submitted")
)

// State is the lifecycle of a form.
type State int

const (
	// StatePending means no sentiment has been chosen; the comment field is hidden.
	StatePending State = iota
	// StateReady means a sentiment is chosen and the form can be submitted.
	StateReady
	// StateSubmitting means a submission is in flight; the submit control is disabled.
	StateSubmitting
	// StateSubmitted is terminal.
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sender delivers feedback to the service.
type Sender interface {
	SendFeedback(ctx context.Context, req backend.FeedbackRequest) error
}

// View is an immutable snapshot of a form for rendering.
type View struct {
	ID       string
	Query    string
	State    State
	ThumbsUp *bool
	Comment  string
	// Notice is the failure notice of the last attempt, if any.
	Notice string
}

// CommentVisible reports whether the comment field should be shown.
func (v View) CommentVisible() bool {
	return v.ThumbsUp != nil && v.State != StateSubmitted
}

// SubmitEnabled reports whether the submit control should accept clicks.
func (v View) SubmitEnabled() bool {
	return v.State == StateReady
}

// Form is the feedback affordance of one follow-up prompt.
// It is safe for concurrent use.
type Form struct {
	id     string
	query  string
	sender Sender

	mu       sync.Mutex
	state    State
	thumbsUp *bool
	comment  string
	notice   string
	onChange func(View)
}

// NewForm creates a form for query.
func NewForm(query string, sender Sender) *Form {
	return &Form{
		id:     uuid.NewString(),
		query:  query,
		sender: sender,
	}
}

// ID returns the form's identifier.
func (f *Form) ID() string {
	return f.id
}

// Query returns the question the form is about.
func (f *Form) Query() string {
	return f.query
}

// OnChange registers fn to be called with a fresh View after every change.
// fn is called without the form's lock held.
func (f *Form) OnChange(fn func(View)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// View returns the current snapshot.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Form) viewLocked() View {
	v := View{
		ID:      f.id,
		Query:   f.query,
		State:   f.state,
		Comment: f.comment,
		Notice:  f.notice,
	}
	if f.thumbsUp != nil {
		up := *f.thumbsUp
		v.ThumbsUp = &up
	}
	return v
}

// Choose records the sentiment and reveals the comment field. The choice
// can be changed until the form is submitted.
func (f *Form) Choose(up bool) error {
	f.mu.Lock()
	switch f.state {
	case StateSubmitted:
		f.mu.Unlock()
		return ErrAlreadySubmitted
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmitting
	}
	f.thumbsUp = &up
	f.state = StateReady
	f.notice = ""
	f.mu.Unlock()

	f.changed()
	return nil
}

// SetComment sets the free-text comment.
func (f *Form) SetComment(text string) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.comment = text
	f.mu.Unlock()

	f.changed()
	return nil
}

// Submit sends the feedback. On failure the form returns to the ready state
// with FailureNotice set and the error is returned.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	req := backend.FeedbackRequest{
		Query:        f.query,
		ThumbsUp:     *f.thumbsUp,
		FeedbackText: strings.TrimSpace(f.comment),
	}
	f.state = StateSubmitting
	f.notice = ""
	f.mu.Unlock()
	f.changed()

	err := f.sender.SendFeedback(ctx, req)

	f.mu.Lock()
	if err != nil {
		f.state = StateReady
		f.notice = FailureNotice
	} else {
		f.state = StateSubmitted
	}
	f.mu.Unlock()
	f.changed()

	if err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	return nil
}

func (f *Form) editableLocked() error {
	switch f.state {
	case StatePending:
		return ErrNoSentiment
	case StateSubmitting:
		return ErrSubmitting
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

func (f *Form) changed() {
	f.mu.Lock()
	fn := f.onChange
	v := f.viewLocked()
	f.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}
