// Package chat provides the browser chat feature: the page, its update
// stream and the actions posted from it.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/budgetquery/internal/conversation"
	"github.com/leapstack-labs/budgetquery/internal/feedback"
)

const (
	sessionName = "budgetquery"
	sessionKey  = "conversations"
	// maxRemembered bounds the conversation ids kept in the cookie.
	maxRemembered = 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SendSignals is what the composer posts.
type SendSignals struct {
	Input string `json:"input"`
}

// FeedbackSignals carries the comment fields of every form on the page.
type FeedbackSignals struct {
	Comments map[string]string `json:"comments"`
}

// Handlers provides HTTP handlers for the chat feature.
type Handlers struct {
	registry     *Registry
	sessionStore sessions.Store
	basePath     string
	title        string
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry, sessionStore sessions.Store, basePath, title string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		basePath:     basePath,
		title:        title,
		logger:       logger,
	}
}

// ChatPage starts a new conversation and renders its page. Every page load
// is a new conversation.
func (h *Handlers) ChatPage(w http.ResponseWriter, r *http.Request) {
	c := h.registry.Create()

	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("discarding unreadable session", "error", err)
	}
	ids, _ := sess.Values[sessionKey].([]string)
	ids = append(ids, c.ID)
	if len(ids) > maxRemembered {
		ids = ids[len(ids)-maxRemembered:]
	}
	sess.Values[sessionKey] = ids
	if err := sess.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page(h.title, Paths{Base: h.basePath, ID: c.ID}).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of a conversation. It replays the
// transcript and then pushes every new update.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}

	sse := datastar.NewSSE(w, r)

	sub := c.Transcript.Subscribe()
	defer sub.Close()

	ctx := r.Context()
	cursor := 0
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-sub.C:
			if !open {
				return
			}
			var updates []Update
			updates, cursor = c.Transcript.Since(cursor)
			for _, u := range updates {
				if err := u.Send(sse); err != nil {
					h.logger.Debug("update stream closed", "conversation", c.ID, "error", err)
					return
				}
			}
		}
	}
}

// Send submits the composer input and returns when the turn has ended.
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var signals SendSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "failed to read signals: "+err.Error(), http.StatusBadRequest)
		return
	}

	// The turn outlives a dropped request so its events still reach the stream.
	err := c.Controller.Submit(context.WithoutCancel(r.Context()), signals.Input)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil && !errors.Is(err, conversation.ErrEmptyMessage):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Thumb records the sentiment of a feedback form.
func (h *Handlers) Thumb(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}

	var up bool
	switch chi.URLParam(r, "dir") {
	case "up":
		up = true
	case "down":
	default:
		http.NotFound(w, r)
		return
	}

	if err := form.Choose(up); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitFeedback sends a feedback form. A failed submission is reported
// with an alert and leaves the form open for another try.
func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}

	var signals FeedbackSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "failed to read signals: "+err.Error(), http.StatusBadRequest)
		return
	}

	if comment, ok := signals.Comments[commentSignal(form.ID())]; ok {
		if err := form.SetComment(comment); err != nil {
			writeFormError(w, err)
			return
		}
	}

	err := form.Submit(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, feedback.ErrNoSentiment),
		errors.Is(err, feedback.ErrSubmitting),
		errors.Is(err, feedback.ErrAlreadySubmitted):
		writeFormError(w, err)
	default:
		h.logger.Warn("feedback submission failed", "form", form.ID(), "error", err)
		msg, _ := json.Marshal(feedback.FailureNotice)
		sse := datastar.NewSSE(w, r)
		_ = sse.ExecuteScript("alert(" + string(msg) + ")")
	}
}

func writeFormError(w http.ResponseWriter, err error) {
	status := http.StatusConflict
	if errors.Is(err, feedback.ErrNoSentiment) {
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

// Download streams the workbook of the result that is current now. On
// failure the error is shown in the transcript and the page stays put.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	c, ok := h.conversation(w, r)
	if !ok {
		return
	}

	file, err := c.Controller.Download(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	_, _ = w.Write(file.Data)
}

// conversation resolves {id} to a conversation started by this browser.
func (h *Handlers) conversation(w http.ResponseWriter, r *http.Request) (*Conversation, bool) {
	id := chi.URLParam(r, "id")

	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return nil, false
	}
	ids, _ := sess.Values[sessionKey].([]string)
	if !slices.Contains(ids, id) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return nil, false
	}

	c, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "conversation expired, reload the page", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func (h *Handlers) form(w http.ResponseWriter, r *http.Request) (*feedback.Form, bool) {
	c, ok := h.conversation(w, r)
	if !ok {
		return nil, false
	}
	form, ok := c.Transcript.Form(chi.URLParam(r, "form"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	return form, true
}
