package httpx

import (
	"time"
)

// Option is a named func that will help set custom options to the HTTP Client
type Option func(*Client)

// WithTimeout sets a customizable timeout to the http client.
// Streaming requests ignore it since their lifetime is driven by the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithSkipTLSVerification() Option {
	return func(c *Client) {
		c.transport.TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithExpectContinueTimeout sets how long the transport waits for the server's 100-continue
// before sending the body anyway.
func WithExpectContinueTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.transport.ExpectContinueTimeout = timeout
	}
}
