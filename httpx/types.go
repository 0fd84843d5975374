package httpx

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/clinia/bulkx/errorx"
)

const (
	defaultTimeout               = 60 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
)

// Request is a JSON request answered with a small body, such as a token or an operation status.
type Request struct {
	Method          string
	URL             string
	Body            any
	Headers         http.Header
	QueryParameters url.Values
}

func (r *Request) Validate() error {
	return validateTarget(r.Method, r.URL)
}

// StreamRequest describes a request whose body is written progressively by the caller.
type StreamRequest struct {
	Method          string
	URL             string
	Body            io.Reader
	Headers         http.Header
	QueryParameters url.Values
}

func (r *StreamRequest) Validate() error {
	if err := validateTarget(r.Method, r.URL); err != nil {
		return err
	}
	if r.Body == nil {
		return errorx.InvalidArgumentErrorf("stream request body is required")
	}
	return nil
}

func validateTarget(method, rawURL string) error {
	if method == "" {
		return errorx.InvalidArgumentErrorf("request method is required")
	}
	if rawURL == "" {
		return errorx.InvalidArgumentErrorf("request url is required")
	}
	return nil
}

// Response is a fully read response. Duration runs from sending the request to reading the last body byte.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Duration   time.Duration
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
