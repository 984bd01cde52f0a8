package fetch

import (
	"net/http"
	"time"
)

// NewClient returns an HTTP client tuned for many small sequential and
// parallel segment requests against a single origin.
func NewClient(timeout time.Duration) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 64
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}
