package bulkinsert

import (
	"context"
	"net/http"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/httpx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/tidwall/gjson"
)

const (
	SingleUseAuthTokenHeader = "Single-Use-Auth-Token"

	anonymousAuthGuidance = "could not authenticate the bulk insert token; when the server is hosted behind IIS, make sure Anonymous Authentication is enabled in the IIS configuration"
)

// tokenNegotiator runs the two-step single-use token handshake.
// The first call generates a token, the second call presents it and receives the token used on the stream.
type tokenNegotiator struct {
	http    *httpx.Client
	url     string
	timeout time.Duration
	l       *logrusx.Logger
}

func (n *tokenNegotiator) negotiate(ctx context.Context) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	first, err := n.requestToken(ctx, nil)
	if err != nil {
		return "", errorx.UnauthenticatedErrorf("%s: generating token: %v", anonymousAuthGuidance, err).WithCause(err)
	}
	n.l.Debugf("generated single use auth token")

	headers := http.Header{}
	headers.Set(SingleUseAuthTokenHeader, first)
	second, err := n.requestToken(ctx, headers)
	if err != nil {
		return "", errorx.UnauthenticatedErrorf("%s: validating token: %v", anonymousAuthGuidance, err).WithCause(err)
	}
	n.l.Debugf("validated single use auth token")

	return second, nil
}

func (n *tokenNegotiator) requestToken(ctx context.Context, headers http.Header) (string, error) {
	res, err := n.http.MakeHTTPRequest(ctx, &httpx.Request{
		Method:  http.MethodPost,
		URL:     n.url,
		Headers: headers,
	})
	if err != nil {
		return "", err
	}
	if !res.IsSuccess() {
		return "", errorx.UnavailableErrorf("token endpoint answered %d: %s", res.StatusCode, string(res.Body))
	}

	token := gjson.GetBytes(res.Body, "Token")
	if !gjson.ValidBytes(res.Body) || token.Type != gjson.String || token.String() == "" {
		return "", errorx.InternalErrorf("token endpoint returned no token")
	}

	return token.String(), nil
}
