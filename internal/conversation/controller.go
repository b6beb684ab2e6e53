package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/budgetquery/internal/backend"
	"github.com/leapstack-labs/budgetquery/internal/export"
	"github.com/leapstack-labs/budgetquery/internal/feedback"
)

var (
	// ErrEmptyMessage is returned for blank input. Nothing is shown.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while another turn is in flight.
	ErrBusy = errors.New("a question is already being answered")
	// ErrNoResult is returned by Download before the first success.
	ErrNoResult = errors.New("no result to download")
)

// Service is the remote side of a conversation.
type Service interface {
	Interpret(ctx context.Context, req backend.InterpretRequest) (*backend.Interpretation, error)
	Execute(ctx context.Context, req backend.ExecuteRequest) (*backend.Execution, error)
	Observe(ctx context.Context, req backend.ObservationsRequest) (*backend.Observations, error)
	feedback.Sender
	export.Fetcher
}

// Config holds the dependencies of a Controller.
type Config struct {
	Service   Service
	Presenter Presenter
	Logger    *slog.Logger
	// Now returns the current time; used for download filenames.
	Now func() time.Time
}

// Controller is the state machine of one conversation.
type Controller struct {
	svc       Service
	presenter Presenter
	logger    *slog.Logger
	now       func() time.Time

	inFlight atomic.Bool
	turns    atomic.Uint64

	mu            sync.Mutex
	mode          Mode
	originalQuery string
	result        Result
	observations  ObservationState
	calling       Phase
}

// route says how a message was interpreted by Submit.
type route int

const (
	routeFresh route = iota
	routeClarification
	routeFollowUp
)

func (r route) String() string {
	switch r {
	case routeClarification:
		return "clarification"
	case routeFollowUp:
		return "follow-up"
	default:
		return "fresh"
	}
}

// turn is one resolve-and-execute run.
type turn struct {
	n             uint64
	route         route
	question      string
	clarification string
}

// New creates a Controller in the Idle phase.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	presenter := cfg.Presenter
	if presenter == nil {
		presenter = PresenterFunc(func(Event) {})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		svc:       cfg.Service,
		presenter: presenter,
		logger:    logger,
		now:       now,
		mode:      Idle{},
		calling:   phaseNone,
	}
}

// Submit handles one user message and returns when the turn has ended.
// Outcomes of the turn, including service errors, are reported as events;
// the returned error is only ErrEmptyMessage or ErrBusy.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	c.present(UserEntry{Text: text})

	t := turn{n: c.turns.Add(1)}

	c.mu.Lock()
	switch m := c.mode.(type) {
	case AwaitingClarification:
		t.route = routeClarification
		t.question = c.originalQuery
		t.clarification = text
		c.mode = settledMode(m.LastQuery)
	default:
		if last := lastQuery(c.mode); last != "" {
			t.route = routeFollowUp
			c.originalQuery = last
			t.question = last
			t.clarification = text
		} else {
			t.route = routeFresh
			c.originalQuery = text
			c.mode = Idle{}
			t.question = text
		}
	}
	c.mu.Unlock()

	c.logger.Debug("turn started", "turn", t.n, "route", t.route.String(), "question", t.question)
	c.resolveAndExecute(ctx, t)
	return nil
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	return c.inFlight.Load()
}

// resolveAndExecute runs interpret then execute, and observations on the
// first success. BusyChanged{false} is emitted on every exit path.
func (c *Controller) resolveAndExecute(ctx context.Context, t turn) {
	c.present(BusyChanged{Busy: true})
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("turn panicked", "turn", t.n, "panic", r)
			c.present(Typing{On: false})
			c.present(ErrorEntry{Message: backend.GenericErrorMessage})
		}
		c.setCalling(phaseNone)
		c.present(BusyChanged{Busy: false})
	}()

	// Phase A: interpret.
	c.setCalling(PhaseAwaitingInterpretation)
	c.present(Typing{On: true})
	interp, err := c.svc.Interpret(ctx, backend.InterpretRequest{
		Query:         t.question,
		Clarification: t.clarification,
	})
	c.present(Typing{On: false})
	if err != nil {
		c.fail(t, "interpret", err)
		return
	}

	switch {
	case interp.NeedsClarification():
		original := interp.OriginalQuery
		if original == "" {
			original = t.question
		}
		c.mu.Lock()
		c.originalQuery = original
		c.mode = AwaitingClarification{
			Question:      interp.Question,
			OriginalQuery: original,
			LastQuery:     lastQuery(c.mode),
		}
		c.mu.Unlock()
		c.logger.Debug("clarification needed", "turn", t.n, "question", interp.Question)
		c.present(ClarifyingQuestion{Text: interp.Question})
		return

	case interp.CannotAnswer():
		c.logger.Debug("cannot answer", "turn", t.n)
		c.present(Apology{Text: ApologyText})
		return
	}

	if strings.TrimSpace(interp.SQL) == "" {
		c.logger.Warn("interpretation returned no SQL", "turn", t.n, "status", interp.Status)
		c.present(ErrorEntry{Message: NoSQLMessage})
		return
	}

	ack := AckText
	if t.route == routeClarification {
		ack = AckClarifiedText
	}
	c.present(Acknowledgement{Text: ack})

	// Phase B: execute.
	c.setCalling(PhaseAwaitingExecution)
	c.present(Typing{On: true})
	exec, err := c.svc.Execute(ctx, backend.ExecuteRequest{SQL: interp.SQL})
	c.present(Typing{On: false})
	if err != nil {
		c.fail(t, "execute", err)
		return
	}

	executed := exec.SQL
	if executed == "" {
		executed = interp.SQL
	}

	c.mu.Lock()
	c.result = Result{SQL: executed, CSV: exec.CSVData}
	c.mode = ReadyForFollowUp{LastQuery: t.question}
	first := c.observations == ObservationsNotRequested
	if first {
		c.observations = ObservationsRequested
	}
	c.mu.Unlock()

	c.logger.Debug("query executed", "turn", t.n, "sql", executed, "csv_bytes", len(exec.CSVData))
	c.present(ResultEntry{SQL: executed, CSV: exec.CSVData})

	if first {
		c.fetchObservations(ctx, t, exec.CSVData)
		return
	}
	c.presentFollowUp(t.question)
}

// fetchObservations runs the one-shot observation step. Failures are
// silent; the follow-up prompt only appears when a summary was shown.
func (c *Controller) fetchObservations(ctx context.Context, t turn, data string) {
	c.setCalling(PhaseAwaitingObservations)
	c.present(Typing{On: true})
	obs, err := c.svc.Observe(ctx, backend.ObservationsRequest{
		Query:   t.question,
		CSVData: data,
	})
	c.present(Typing{On: false})

	if err != nil {
		c.logger.Debug("observations unavailable", "turn", t.n, "error", err)
		c.setObservations(ObservationsFailed)
		return
	}

	text := strings.TrimSpace(obs.Observations)
	if text == "" {
		c.logger.Debug("observations empty", "turn", t.n)
		c.setObservations(ObservationsFailed)
		return
	}

	c.setObservations(ObservationsShown)
	c.present(ObservationsCard{Label: ObservationsLabel, Text: text})
	c.presentFollowUp(t.question)
}

func (c *Controller) presentFollowUp(question string) {
	c.present(FollowUpPrompt{
		Text: FollowUpText,
		Form: feedback.NewForm(question, c.svc),
	})
}

// fail reports a transport or service error for step.
func (c *Controller) fail(t turn, step string, err error) {
	c.logger.Warn("turn failed", "turn", t.n, "step", step, "error", err)
	c.present(ErrorEntry{Message: backend.Message(err)})
}

// Download fetches the workbook for the result that is current now.
func (c *Controller) Download(ctx context.Context) (*export.File, error) {
	c.mu.Lock()
	sql := c.result.SQL
	c.mu.Unlock()

	if sql == "" {
		c.present(ErrorEntry{Message: NoResultMessage})
		return nil, ErrNoResult
	}

	file, err := export.Fetch(ctx, c.svc, sql, c.now())
	if err != nil {
		c.logger.Warn("download failed", "error", err)
		c.present(ErrorEntry{Message: DownloadFailPrefix + backend.Message(err)})
		return nil, fmt.Errorf("downloading result: %w", err)
	}

	c.logger.Debug("download fetched", "filename", file.Filename, "bytes", len(file.Data), "rows", file.Rows)
	return file, nil
}

// SaveDownload downloads the current result into dir.
func (c *Controller) SaveDownload(ctx context.Context, dir string) (string, error) {
	file, err := c.Download(ctx)
	if err != nil {
		return "", err
	}

	path, err := file.Save(dir)
	if err != nil {
		c.present(ErrorEntry{Message: DownloadFailPrefix + err.Error()})
		return "", err
	}

	c.present(DownloadSaved{Filename: file.Filename, Path: path, Rows: file.Rows})
	return path, nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) phaseLocked() Phase {
	if c.calling != phaseNone {
		return c.calling
	}
	switch c.mode.(type) {
	case AwaitingClarification:
		return PhaseAwaitingClarificationReply
	case ReadyForFollowUp:
		return PhaseReadyForFollowUp
	default:
		return PhaseIdle
	}
}

// Result returns the current result.
func (c *Controller) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, awaiting := c.mode.(AwaitingClarification)
	return Snapshot{
		Mode:                  c.mode,
		Phase:                 c.phaseLocked(),
		OriginalQuery:         c.originalQuery,
		PendingTrueSQL:        c.result.SQL,
		PendingCSVData:        c.result.CSV,
		AwaitingClarification: awaiting,
		LastSuccessfulQuery:   lastQuery(c.mode),
		Observations:          c.observations,
		ObservationsShown:     c.observations != ObservationsNotRequested,
		Turns:                 c.turns.Load(),
	}
}

func (c *Controller) setCalling(p Phase) {
	c.mu.Lock()
	c.calling = p
	c.mu.Unlock()
}

func (c *Controller) setObservations(s ObservationState) {
	c.mu.Lock()
	c.observations = s
	c.mu.Unlock()
}

func (c *Controller) present(e Event) {
	c.presenter.Present(e)
}
