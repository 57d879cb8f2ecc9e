package submission

import (
	"fmt"
	"time"
)

// ResultKind classifies a submission result.
type ResultKind string

const (
	ResultSuccess        ResultKind = "success"
	ResultServerError    ResultKind = "server_error"
	ResultTransportError ResultKind = "transport_error"
)

// Result is the terminal outcome of one submission.
type Result struct {
	Kind       ResultKind
	StatusCode int
	Body       string
	Message    string
	Err        error
	Latency    time.Duration
	RequestID  string
}

// Notice is the single user-facing message for the result.
func (r Result) Notice() string {
	switch r.Kind {
	case ResultSuccess:
		return "Server: " + r.Body
	case ResultServerError:
		if r.Body == "" {
			return fmt.Sprintf("Server error: %d", r.StatusCode)
		}
		return fmt.Sprintf("Server error: %d - %s", r.StatusCode, r.Body)
	default:
		return "Request failed: " + r.Message
	}
}
