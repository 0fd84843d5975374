package httpx

import (
	"crypto/tls"
	"net/http"
	"sync/atomic"
)

// Client sends the bulk insert requests. Short requests go through an http.Client with a timeout;
// streams share its transport without the timeout since their lifetime is driven by the caller.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport

	// expectContinue is toggled around the setup of streaming requests only.
	expectContinue atomic.Bool
}

func NewClient(options ...Option) *Client {
	c := &Client{
		transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSClientConfig:       &tls.Config{},
			ExpectContinueTimeout: defaultExpectContinueTimeout,
			IdleConnTimeout:       defaultIdleConnTimeout,
		},
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	c.httpClient.Transport = c.transport

	return c
}

// SetExpectContinue toggles the "Expect: 100-continue" handshake for the requests built from now on.
func (c *Client) SetExpectContinue(enabled bool) {
	c.expectContinue.Store(enabled)
}

// ExpectContinue reports whether requests built now carry the "Expect: 100-continue" header.
func (c *Client) ExpectContinue() bool {
	return c.expectContinue.Load()
}

func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}
