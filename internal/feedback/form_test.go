package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/budgetquery/internal/backend"
)

type stubSender struct {
	mu    sync.Mutex
	sent  []backend.FeedbackRequest
	err   error
	block chan struct{}
}

func (s *stubSender) SendFeedback(_ context.Context, req backend.FeedbackRequest) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return s.err
}

func (s *stubSender) calls() []backend.FeedbackRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.FeedbackRequest(nil), s.sent...)
}

func TestForm_CommentRequiresSentiment(t *testing.T) {
	f := NewForm("total spend", &stubSender{})

	assert.False(t, f.View().CommentVisible())
	assert.ErrorIs(t, f.SetComment("nice"), ErrNoSentiment)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrNoSentiment)

	require.NoError(t, f.Choose(true))
	v := f.View()
	assert.True(t, v.CommentVisible())
	assert.True(t, v.SubmitEnabled())
	require.NotNil(t, v.ThumbsUp)
	assert.True(t, *v.ThumbsUp)

	require.NoError(t, f.SetComment("nice"))
	assert.Equal(t, "nice", f.View().Comment)
}

func TestForm_SubmitOnce(t *testing.T) {
	sender := &stubSender{}
	f := NewForm("total spend by department", sender)

	require.NoError(t, f.Choose(true))
	require.NoError(t, f.Choose(false))
	require.NoError(t, f.SetComment("  wrong fiscal year  "))
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, []backend.FeedbackRequest{{
		Query:        "total spend by department",
		ThumbsUp:     false,
		FeedbackText: "wrong fiscal year",
	}}, sender.calls())

	v := f.View()
	assert.Equal(t, StateSubmitted, v.State)
	assert.False(t, v.CommentVisible())
	assert.False(t, v.SubmitEnabled())

	assert.ErrorIs(t, f.Submit(context.Background()), ErrAlreadySubmitted)
	assert.ErrorIs(t, f.Choose(true), ErrAlreadySubmitted)
	assert.ErrorIs(t, f.SetComment("x"), ErrAlreadySubmitted)
	assert.Len(t, sender.calls(), 1)
}

func TestForm_RetryAfterFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	f := NewForm("q", sender)
	require.NoError(t, f.Choose(true))

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	v := f.View()
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, FailureNotice, v.Notice)
	assert.True(t, v.SubmitEnabled())

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, f.View().State)
	assert.Empty(t, f.View().Notice)
	assert.Len(t, sender.calls(), 2)
}

func TestForm_DisabledWhileSubmitting(t *testing.T) {
	sender := &stubSender{block: make(chan struct{})}
	f := NewForm("q", sender)
	require.NoError(t, f.Choose(true))

	submitting := make(chan struct{})
	f.OnChange(func(v View) {
		if v.State == StateSubmitting {
			close(submitting)
		}
	})

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()

	<-submitting
	f.OnChange(nil)
	assert.False(t, f.View().SubmitEnabled())
	assert.ErrorIs(t, f.Submit(context.Background()), ErrSubmitting)
	assert.ErrorIs(t, f.Choose(false), ErrSubmitting)

	close(sender.block)
	require.NoError(t, <-done)
	assert.Len(t, sender.calls(), 1)
}

func TestForm_OnChange(t *testing.T) {
	f := NewForm("q", &stubSender{})

	var states []State
	f.OnChange(func(v View) { states = append(states, v.State) })

	require.NoError(t, f.Choose(false))
	require.NoError(t, f.SetComment("meh"))
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, []State{StateReady, StateReady, StateSubmitting, StateSubmitted}, states)
}

func TestForm_IDsAreUnique(t *testing.T) {
	a := NewForm("q", &stubSender{})
	b := NewForm("q", &stubSender{})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "q", a.Query())
}
