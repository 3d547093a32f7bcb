package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // сервер отклонил запрос
	ExitCommandError = 2 // сервер недоступен
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not *ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for every command.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data as JSON, or calls text for the human format.
func (f *OutputFormatter) Success(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &Error{Code: code, Message: message, Details: details},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// Fail reports a failed RPC and converts it into an exit error. The connection is
// lazy, so an unreachable server shows up here as Unavailable or DeadlineExceeded.
func (f *OutputFormatter) Fail(op string, err error) error {
	st := status.Convert(err)
	_ = f.Error(st.Code().String(), st.Message(), nil)

	code := ExitFailure
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		code = ExitCommandError
	}
	return WrapExitError(code, op, err)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
