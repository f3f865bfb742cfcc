// Package crm is the client of the CRM webservice: an expiring login
// session and the record operations the reconcilers need.
//
// Read operations (retrieve, comment query) retry exactly once after forcing
// a new login. Create and update are never replayed.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/crmsync/internal/transport"
	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Record is a CRM record as returned by retrieve.
type Record map[string]any

// String returns a field as a string. Numbers and booleans are formatted;
// missing and null fields are "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Server-managed fields stripped before an update is posted.
var serverManaged = []string{"createdtime", "modifiedtime"}

// Client performs record operations under a Session.
type Client struct {
	transport *transport.Client
	session   *Session
	module    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModule sets the CRM module records are created in.
func WithModule(module string) ClientOption {
	return func(c *Client) {
		if module != "" {
			c.module = module
		}
	}
}

// NewClient creates a record client.
func NewClient(tc *transport.Client, session *Session, opts ...ClientOption) *Client {
	c := &Client{
		transport: tc,
		session:   session,
		module:    constants.DefaultModule,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

// Create creates a record and returns its identifier. It is attempted once;
// a duplicate-detection rejection is a RemoteError of KindDuplicate.
func (c *Client) Create(ctx context.Context, payload map[string]string) (string, error) {
	token, err := c.session.EnsureValid(ctx)
	if err != nil {
		return "", err
	}
	element, err := json.Marshal(payload)
	if err != nil {
		return "", errors.WrapParse("json", "create payload", err)
	}

	form := url.Values{
		"operation":   {"create"},
		"elementType": {c.module},
		"element":     {string(element)},
	}
	env, err := c.post(ctx, form, token)
	if err != nil {
		return "", transportError(errors.OpCreate, "", err)
	}
	if !env.Success {
		return "", c.failed(errors.OpCreate, "", env)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := env.DecodeResult(&result); err != nil || result.ID == "" {
		rerr := errors.NewRemoteError(errors.OpCreate, "", errors.KindOther, "", "create returned no id")
		rerr.Response, rerr.Err = env.Raw, err
		return "", rerr
	}
	return result.ID, nil
}

// Retrieve fetches a record. A failure is retried once after a forced
// re-login.
func (c *Client) Retrieve(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := c.withRetry(ctx, errors.OpRetrieve, id, func(token string) error {
		params := url.Values{
			"operation": {"retrieve"},
			"id":        {id},
		}
		env, err := c.get(ctx, params, token)
		if err != nil {
			return transportError(errors.OpRetrieve, id, err)
		}
		if !env.Success {
			return c.failed(errors.OpRetrieve, id, env)
		}
		rec = Record{}
		if err := env.DecodeResult(&rec); err != nil {
			return transportError(errors.OpRetrieve, id, err)
		}
		return nil
	})
	return rec, err
}

// Update posts the full record under id, without server-managed fields.
// It is attempted once.
func (c *Client) Update(ctx context.Context, id string, record Record) error {
	token, err := c.session.EnsureValid(ctx)
	if err != nil {
		return err
	}

	full := record.Clone()
	for _, f := range serverManaged {
		delete(full, f)
	}
	full["id"] = id
	element, err := json.Marshal(full)
	if err != nil {
		return errors.WrapParse("json", "update element", err)
	}

	form := url.Values{
		"operation": {"update"},
		"element":   {string(element)},
	}
	env, err := c.post(ctx, form, token)
	if err != nil {
		return transportError(errors.OpUpdate, id, err)
	}
	if !env.Success {
		return c.failed(errors.OpUpdate, id, env)
	}
	return nil
}

// Comment is one comment row related to a record.
type Comment struct {
	Content     string `json:"commentcontent"`
	CreatedTime string `json:"createdtime"`
}

// ListComments returns the record's comment history, newest first, as
// "<timestamp> : <text>" lines. Comments are best effort: a failed query
// yields "" and is logged. Only an authentication failure is returned.
func (c *Client) ListComments(ctx context.Context, id string) (string, error) {
	logger := logging.FromContext(ctx)
	if strings.ContainsAny(id, `'\`) {
		logger.Warn().Str("crm_id", id).Msg("Refusing comment query for malformed id")
		return "", nil
	}

	var comments []Comment
	err := c.withRetry(ctx, errors.OpQuery, id, func(token string) error {
		params := url.Values{
			"operation": {"query"},
			"query":     {commentQuery(id)},
		}
		env, err := c.get(ctx, params, token)
		if err != nil {
			return transportError(errors.OpQuery, id, err)
		}
		if !env.Success {
			return c.failed(errors.OpQuery, id, env)
		}
		comments = nil
		if len(env.Result) == 0 {
			return nil
		}
		if err := env.DecodeResult(&comments); err != nil {
			return transportError(errors.OpQuery, id, err)
		}
		return nil
	})
	if err != nil {
		if errors.IsAuthentication(err) {
			return "", err
		}
		logger.Warn().Err(err).Str("crm_id", id).Msg("Comment query failed, continuing without comments")
		return "", nil
	}
	return FormatComments(comments), nil
}

func commentQuery(id string) string {
	return fmt.Sprintf("select commentcontent,createdtime from ModComments where related_to='%s' ORDER BY createdtime ASC;", id)
}

// FormatComments renders comments newest first. Empty comments are dropped
// and the T separator of timestamps is replaced with a space. Comments are
// ordered oldest first by creation time before being reversed.
func FormatComments(comments []Comment) string {
	sorted := make([]Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedTime < sorted[j].CreatedTime
	})

	lines := make([]string, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		content := strings.TrimSpace(sorted[i].Content)
		if content == "" {
			continue
		}
		ts := strings.Replace(sorted[i].CreatedTime, "T", " ", 1)
		lines = append(lines, ts+" : "+content)
	}
	return strings.Join(lines, "\n")
}

// withRetry runs call with a valid token and, when it fails, once more after
// forcing a new login.
func (c *Client) withRetry(ctx context.Context, op errors.Op, id string, call func(token string) error) error {
	token, err := c.session.EnsureValid(ctx)
	if err != nil {
		return err
	}
	err = call(token)
	if err == nil {
		return nil
	}

	logging.FromContext(ctx).Debug().
		Err(err).
		Str("operation", string(op)).
		Str("crm_id", id).
		Msg("CRM call failed, retrying after re-login")

	token, rerr := c.session.Renew(ctx)
	if rerr != nil {
		return rerr
	}
	return call(token)
}

// failed classifies an unsuccessful envelope and drops a rejected session.
func (c *Client) failed(op errors.Op, id string, env *transport.Envelope) error {
	rerr := classify(op, id, env)
	if rerr.Kind == errors.KindSession {
		c.session.Invalidate()
	}
	return rerr
}

func (c *Client) get(ctx context.Context, params url.Values, token string) (*transport.Envelope, error) {
	resp, err := c.transport.Get(ctx, params, token)
	if err != nil {
		return nil, err
	}
	return transport.DecodeEnvelope(resp)
}

func (c *Client) post(ctx context.Context, form url.Values, token string) (*transport.Envelope, error) {
	resp, err := c.transport.PostForm(ctx, form, token)
	if err != nil {
		return nil, err
	}
	return transport.DecodeEnvelope(resp)
}
