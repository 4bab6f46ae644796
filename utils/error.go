package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrPrecondition: the triggering entity is missing or not in the state its
// workflow requires. Never retried automatically; maps to a 4xx upstream.
var ErrPrecondition = errors.New("precondition failed")

// ErrInsufficientStock: an outbound stock movement would drive current_stock
// negative and the operation mode demands a hard reject.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrIntegrity: a backup artifact failed checksum verification. The restore
// aborts before any destructive action.
var ErrIntegrity = errors.New("integrity check failed")

// ErrUnsupported: a configured capability (backup encryption, remote upload)
// is not implemented. Rejected at config validation, never silently no-oped.
var ErrUnsupported = errors.New("unsupported capability")

func PreconditionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// ExternalToolError wraps a dump/restore subprocess failure.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s failed (exit=%d): %s", e.Tool, e.ExitCode, e.Stderr)
}

// RowError is a per-row failure during bulk import/transform. It is data, not
// control flow: collected into the result, never aborts the run.
type RowError struct {
	RowNumber int      `json:"row_number"`
	Err       string   `json:"error"`
	Raw       []string `json:"raw,omitempty"`
}
