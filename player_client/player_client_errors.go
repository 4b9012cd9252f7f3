package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotConnected      = errors.New("not connected to a host")
	ErrAlreadyConnected  = errors.New("already connected to a host")
	ErrHostOnlyCommand   = errors.New("command is only available on the host")
	ErrUnexpectedMessage = errors.New("unexpected first message from host")
)

// HTTPResponseCodeError is returned when the host refuses the websocket
// upgrade. Errors holds the host's error payload, if it sent one.
type HTTPResponseCodeError struct {
	StatusCode int
	Status     string
	Errors     []string
}

func NewHTTPResponseCodeError(statusCode int, errs []string) *HTTPResponseCodeError {
	return &HTTPResponseCodeError{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Errors:     errs,
	}
}

func (e *HTTPResponseCodeError) Error() string {
	msg := fmt.Sprintf("HTTP error response: %d (%s)", e.StatusCode, e.Status)
	if len(e.Errors) != 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Errors, ": "))
	}
	return msg
}
