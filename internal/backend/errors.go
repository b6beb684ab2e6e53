package backend

import (
	"errors"
	"fmt"
	"strings"
)

// GenericErrorMessage is shown when a failure carries no usable message.
const GenericErrorMessage = "An error occurred"

// APIError is a non-2xx response from the service.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// Message returns the text to show the user for err: the service's own
// message for API errors, the error text for transport errors and
// GenericErrorMessage when neither says anything.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		return GenericErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
