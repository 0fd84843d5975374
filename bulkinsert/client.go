package bulkinsert

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/httpx"
	"github.com/google/uuid"
)

// Client holds the server coordinates and the HTTP client shared by the sessions it opens.
type Client struct {
	http     *httpx.Client
	url      string
	database string
}

func NewClient(serverURL string, database string, httpClient *httpx.Client) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("invalid server url %q: %v", serverURL, err).WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errorx.InvalidArgumentErrorf("server url %q must use http or https", serverURL)
	}
	if u.Host == "" {
		return nil, errorx.InvalidArgumentErrorf("server url %q has no host", serverURL)
	}
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}

	return &Client{
		http:     httpClient,
		url:      strings.TrimSuffix(serverURL, "/"),
		database: database,
	}, nil
}

// BaseURL is the server url, followed by /databases/<name> when a database is set.
func (c *Client) BaseURL() string {
	if c.database == "" {
		return c.url
	}
	return c.url + "/databases/" + url.PathEscape(c.database)
}

func (c *Client) bulkInsertURL(sessionID uuid.UUID, o Options) string {
	var b strings.Builder
	b.WriteString(c.BaseURL())
	b.WriteString("/bulkInsert?")
	if o.CheckForUpdates {
		b.WriteString("checkForUpdates=true&")
	}
	if o.CheckReferencesInIndexes {
		b.WriteString("checkReferencesInIndexes=true&")
	}
	b.WriteString("operationId=")
	b.WriteString(sessionID.String())
	return b.String()
}

func (c *Client) tokenURL(sessionID uuid.UUID, o Options) string {
	return c.bulkInsertURL(sessionID, o) + "&op=generate-single-use-auth-token"
}

func (c *Client) operationStatusURL(operationID int64) string {
	return c.BaseURL() + "/operation/status?id=" + strconv.FormatInt(operationID, 10)
}
