package httpclient

import (
	"net/http"
	"time"
)

// HTTPDoer is an interface for HTTP clients that can execute requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns a plain HTTP client with the given timeout. Failed requests
// are reported to the caller as-is; nothing is retried.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
