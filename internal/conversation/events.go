package conversation

import "github.com/leapstack-labs/budgetquery/internal/feedback"

// Fixed assistant texts.
const (
	AckText            = "Here you go!"
	AckClarifiedText   = "Thanks for clarifying, here you go!"
	ApologyText        = "Sorry, I cannot answer this."
	FollowUpText       = "Is everything clear, or would you like something added or corrected?"
	ObservationsLabel  = "AI-generated Observations"
	NoSQLMessage       = "The question could not be translated into a query."
	NoResultMessage    = "Run a query before downloading."
	DownloadFailPrefix = "Download failed: "
)

// Event is something the user should see. Front ends switch on the
// concrete type.
type Event interface {
	event()
}

// Presenter receives the events of a conversation in order.
type Presenter interface {
	Present(Event)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Event)

// Present calls f(e).
func (f PresenterFunc) Present(e Event) { f(e) }

// UserEntry echoes an accepted message.
type UserEntry struct {
	Text string
}

// BusyChanged toggles the send affordance. When Busy turns false the input
// is cleared and focused again.
type BusyChanged struct {
	Busy bool
}

// Typing shows or hides the typing indicator around a remote call.
type Typing struct {
	On bool
}

// Acknowledgement precedes a result.
type Acknowledgement struct {
	Text string
}

// ClarifyingQuestion is a question from the service.
type ClarifyingQuestion struct {
	Text string
}

// Apology is shown when the service cannot answer.
type Apology struct {
	Text string
}

// ErrorEntry is an inline error.
type ErrorEntry struct {
	Message string
}

// ResultEntry shows the executed SQL and offers the download. The download
// always fetches the result that is current when it is triggered, which may
// be newer than SQL.
type ResultEntry struct {
	SQL string
	CSV string
}

// ObservationsCard presents the AI-generated summary.
type ObservationsCard struct {
	Label string
	Text  string
}

// FollowUpPrompt invites the user to confirm or refine, with a feedback form.
type FollowUpPrompt struct {
	Text string
	Form *feedback.Form
}

// DownloadSaved reports a workbook written to disk.
type DownloadSaved struct {
	Filename string
	Path     string
	Rows     int
}

func (UserEntry) event()          {}
func (BusyChanged) event()        {}
func (Typing) event()             {}
func (Acknowledgement) event()    {}
func (ClarifyingQuestion) event() {}
func (Apology) event()            {}
func (ErrorEntry) event()         {}
func (ResultEntry) event()        {}
func (ObservationsCard) event()   {}
func (FollowUpPrompt) event()     {}
func (DownloadSaved) event()      {}
