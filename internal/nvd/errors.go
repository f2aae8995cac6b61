package nvd

import (
	"errors"
	"fmt"
)

// ErrUpstreamTimeout is returned when the lookup exceeds its time budget.
var ErrUpstreamTimeout = errors.New("NVD API request timed out")

// UpstreamError reports a transport failure, a non-2xx status or an
// undecodable body from the NVD API.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
