package fetch

import (
	"errors"
	"fmt"
)

// ErrSegmentDownload wraps the last error of a segment whose retries ran out.
var ErrSegmentDownload = errors.New("segment download failed")

// HTTPStatusError reports a response outside the 2xx range.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}
