package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	"github.com/clinia/bulkx/errorx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
)

// MakeHTTPRequest sends a request with a JSON body, if any, and reads the whole response.
// The client timeout applies.
func (c *Client) MakeHTTPRequest(ctx context.Context, input *Request) (*Response, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var body io.Reader
	if input.Body != nil {
		b, err := json.Marshal(input.Body)
		if err != nil {
			return nil, errorx.InvalidArgumentErrorf("cannot encode request body: %v", err).WithCause(err)
		}
		body = bytes.NewReader(b)
	}

	ctx = httptrace.WithClientTrace(ctx, otelhttptrace.NewClientTrace(ctx))
	req, err := newRequest(ctx, input.Method, input.URL, body, input.Headers, input.QueryParameters)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return do(c.httpClient, req)
}

// NewStreamRequest builds the request for a long-lived upload. The body is streamed as chunked
// transfer encoding. If the expect-continue toggle is on, the request carries "Expect: 100-continue".
func (c *Client) NewStreamRequest(ctx context.Context, input *StreamRequest) (*http.Request, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, input.Method, input.URL, input.Body, input.Headers, input.QueryParameters)
	if err != nil {
		return nil, err
	}
	req.ContentLength = -1
	if c.ExpectContinue() {
		req.Header.Set("Expect", "100-continue")
	}

	return req, nil
}

// DoStream sends a request built by NewStreamRequest and reads the whole response.
// It blocks until the request body has been fully consumed and the response is read.
// The client timeout does not apply here.
func (c *Client) DoStream(req *http.Request) (*Response, error) {
	return do(&http.Client{
		Transport:     c.transport,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
	}, req)
}

func newRequest(ctx context.Context, method, rawURL string, body io.Reader, headers http.Header, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("invalid request: %v", err).WithCause(err)
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	otelhttptrace.Inject(ctx, req)

	return req, nil
}

// do returns the transport error as is, so callers can tell a cancelled context from a failed server.
func do(client *http.Client, req *http.Request) (*Response, error) {
	start := time.Now()

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: res.StatusCode,
		Body:       body,
		Headers:    res.Header,
		Duration:   time.Since(start),
	}, nil
}
