package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

var (
	// ErrUnauthorized is returned when the request token does not match the configured secret
	ErrUnauthorized = errors.New("invalid access token")
	// ErrForbidden is returned when the target collection is outside the allowed prefix
	ErrForbidden = errors.New("collection outside allowed namespace")
)

// WriteRejectedError reports a bulk write that failed for a reason other than uniqueness conflicts
type WriteRejectedError struct {
	Collection string
	Cause      error
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("write to collection %s rejected: %v", e.Collection, e.Cause)
}

func (e *WriteRejectedError) Unwrap() error {
	return e.Cause
}

// ItemFailureError lists the documents of a batch that failed with a non-conflict cause
type ItemFailureError struct {
	Failures []domain.ItemOutcome
}

func (e *ItemFailureError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("index %d (%s)", f.Index, f.Cause)
	}
	return fmt.Sprintf("%d document(s) failed: %s", len(e.Failures), strings.Join(parts, ", "))
}
