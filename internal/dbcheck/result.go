package dbcheck

import (
	"net/http"

	"dbcheck/internal/users"
)

const (
	MsgSuccess = "Database connection successful"
	MsgFailure = "Database connection failed"

	// UnknownError stands in for failures that carry no description.
	UnknownError = "Unknown error"
)

// Result is either Success or Failure. Callers switch on the concrete type.
type Result interface {
	OK() bool
	isResult()
}

// Success means the bounded query completed. Sample holds zero or one users
// and is never nil.
type Success struct {
	Message string
	Sample  []users.User
}

// Failure means the query did not complete. ErrorDetail is the failure's
// description, or UnknownError.
type Failure struct {
	Message     string
	ErrorDetail string
}

func (Success) OK() bool { return true }
func (Failure) OK() bool { return false }

func (Success) isResult() {}
func (Failure) isResult() {}

type successBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    []users.User `json:"data"`
}

type failureBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Envelope maps r to an HTTP status code and the JSON body to send.
func Envelope(r Result) (int, any) {
	switch v := r.(type) {
	case Success:
		data := v.Sample
		if data == nil {
			data = []users.User{}
		}
		return http.StatusOK, successBody{Success: true, Message: v.Message, Data: data}
	case Failure:
		return http.StatusInternalServerError, failureBody{Success: false, Message: v.Message, Error: v.ErrorDetail}
	default:
		return http.StatusInternalServerError, failureBody{Success: false, Message: MsgFailure, Error: UnknownError}
	}
}
