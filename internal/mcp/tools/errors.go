package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/usestring/harreplay/internal/replay"
	"github.com/usestring/harreplay/internal/session"
	"github.com/usestring/harreplay/pkg/har"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeFormat       = "FORMAT_ERROR"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeReplay       = "REPLAY_ERROR"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapReplayError converts loader, session and replayer errors to coded errors.
func WrapReplayError(err error) error {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return err
	}

	var (
		formatErr   *har.FormatError
		rangeErr    *replay.RangeError
		inFlightErr *replay.InFlightError
	)
	switch {
	case errors.As(err, &formatErr):
		coded = &CodedError{Code: ErrCodeFormat, Message: "invalid archive", Cause: err}
	case errors.As(err, &rangeErr):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "no such transaction", Cause: err}
	case errors.As(err, &inFlightErr):
		coded = &CodedError{Code: ErrCodeConflict, Message: "transaction is being replayed", Cause: err}
	case errors.Is(err, replay.ErrNotReplayed):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "replay the transaction first", Cause: err}
	case errors.Is(err, session.ErrNotFound), errors.Is(err, replay.ErrNotLoaded):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "load an archive first", Cause: err}
	case errors.Is(err, fs.ErrNotExist):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "archive file not found", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		coded = &CodedError{Code: ErrCodeTimeout, Message: "operation timed out", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeReplay, Message: err.Error(), Cause: err}
	}

	slog.Warn("tool error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)
	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
