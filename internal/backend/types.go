package backend

// Interpretation statuses returned by /api/interpret.
const (
	StatusOK                  = "ok"
	StatusReady               = "ready"
	StatusClarificationNeeded = "clarification_needed"
	StatusCannotAnswer        = "cannot_answer"
)

// InterpretRequest is the body of POST /api/interpret.
type InterpretRequest struct {
	Query         string `json:"query"`
	Clarification string `json:"clarification,omitempty"`
}

// Interpretation is the response of POST /api/interpret.
type Interpretation struct {
	Status        string `json:"status"`
	SQL           string `json:"sql,omitempty"`
	Question      string `json:"question,omitempty"`
	OriginalQuery string `json:"original_query,omitempty"`
}

// NeedsClarification reports whether the service asked a clarifying question.
func (i *Interpretation) NeedsClarification() bool {
	return i.Status == StatusClarificationNeeded
}

// CannotAnswer reports whether the service declined the question.
func (i *Interpretation) CannotAnswer() bool {
	return i.Status == StatusCannotAnswer
}

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	SQL string `json:"sql"`
}

// Execution is the response of POST /api/execute. SQL is the statement the
// service actually ran, which may differ from the one submitted.
type Execution struct {
	Status  string `json:"status,omitempty"`
	SQL     string `json:"sql"`
	CSVData string `json:"csv_data"`
}

// ObservationsRequest is the body of POST /api/observations.
type ObservationsRequest struct {
	Query   string `json:"query"`
	CSVData string `json:"csv_data"`
}

// Observations is the response of POST /api/observations.
type Observations struct {
	Observations string `json:"observations,omitempty"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	Query        string `json:"query"`
	ThumbsUp     bool   `json:"thumbs_up"`
	FeedbackText string `json:"feedback_text"`
}

// DownloadRequest is the body of POST /api/download. The service reads
// true_sql; sql is sent as well for deployments that expect it.
type DownloadRequest struct {
	TrueSQL  string `json:"true_sql"`
	SQL      string `json:"sql"`
	Filename string `json:"filename"`
}

// errorBody is the JSON shape of a non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}
