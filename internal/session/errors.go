package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied means the caller is not the session owner. Terminal
	// for the request; no retry.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidConfig rejects session configuration at the create boundary.
	ErrInvalidConfig = errors.New("invalid session configuration")
)

// InvalidSegmentError rejects a batch at the ingestion boundary. The whole
// batch is refused; segments are never silently coerced.
type InvalidSegmentError struct {
	Index  int
	Reason string
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("segment %d is invalid: %s", e.Index, e.Reason)
}
