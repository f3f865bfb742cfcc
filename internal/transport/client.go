// Package transport performs the HTTP calls of the CRM webservice: every
// operation is a GET with query parameters or a form POST against a single
// endpoint, answered with a JSON envelope.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with session authentication.
type Client struct {
	http     *http.Client
	auth     Authenticator
	endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a transport client for a webservice endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: DefaultHTTPTimeout},
		auth:     &SessionAuth{Param: DefaultSessionParam},
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the webservice URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Get performs a GET with params in the query string. A non-empty token is
// applied through the authenticator.
func (c *Client) Get(ctx context.Context, params url.Values, token string) (*http.Response, error) {
	params = clone(params)
	c.auth.Apply(params, token)

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, errors.NewConfigError("transport", "invalid endpoint "+c.endpoint, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+c.endpoint, err)
	}
	return c.do(req)
}

// PostForm performs a form-encoded POST. A non-empty token is applied
// through the authenticator.
func (c *Client) PostForm(ctx context.Context, form url.Values, token string) (*http.Response, error) {
	form = clone(form)
	c.auth.Apply(form, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapIO("create", "POST "+c.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errors.APIError{
			Service:  "crm",
			Endpoint: req.Method + " " + c.endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	return resp, nil
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
