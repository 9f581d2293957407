package response

import (
	"encoding/json"
	"net/http"
)

// Problem is an error reply. It satisfies error so handlers and middleware
// can return it up the stack before writing.
type Problem struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]any
	Context    map[string]any
	Timestamp  string
}

func (p *Problem) Error() string { return p.Code + ": " + p.Message }

type problemBody struct {
	Code      string         `json:"code"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

type problemEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   problemBody `json:"error"`
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	details := p.Details
	if details == nil {
		details = map[string]any{}
	}
	return json.Marshal(problemEnvelope{
		Status:  statusError,
		Message: p.Message,
		Error: problemBody{
			Code:      p.Code,
			Details:   details,
			Timestamp: p.Timestamp,
			Context:   p.Context,
		},
	})
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	writeJSON(w, p.StatusCode, p)
}

// New builds a generic error reply. An empty code is derived from the status.
func New(message string, status int, code string, details, context map[string]any) *Problem {
	if code == "" {
		code = ErrorCode(status)
	}
	p := &Problem{
		StatusCode: status,
		Message:    message,
		Code:       code,
		Details:    details,
		Timestamp:  timestamp(),
	}
	if len(context) > 0 {
		p.Context = context
	}
	return p
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusForbidden:           "FORBIDDEN",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "CONFLICT",
	http.StatusUnprocessableEntity: "VALIDATION_ERROR",
	http.StatusTooManyRequests:     "RATE_LIMIT_EXCEEDED",
	http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
}

// ErrorCode maps an HTTP status to its default error code.
func ErrorCode(status int) string {
	if c, ok := statusCodes[status]; ok {
		return c
	}
	return "UNKNOWN_ERROR"
}
