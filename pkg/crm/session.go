package crm

import (
	"context"
	"crypto/md5" //nolint:gosec // the webservice login protocol mandates MD5
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/agentstation/crmsync/internal/transport"
	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Credentials authenticate against the webservice.
type Credentials struct {
	Username  string
	AccessKey string
}

// Session owns the webservice session token and its expiry. A Session is
// not safe for concurrent use.
type Session struct {
	transport *transport.Client
	creds     Credentials
	clock     clockwork.Clock
	lifetime  time.Duration

	token  string
	userID string
	expiry time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the clock used for expiry checks.
func WithClock(clock clockwork.Clock) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLifetime sets the session lifetime used when the server does not
// declare one.
func WithLifetime(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// NewSession creates a session that logs in lazily on first use.
func NewSession(tc *transport.Client, creds Credentials, opts ...SessionOption) *Session {
	s := &Session{
		transport: tc,
		creds:     creds,
		clock:     clockwork.NewRealClock(),
		lifetime:  constants.DefaultSessionLifetime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureValid returns the cached token, logging in first when there is no
// token or the current instant is at or past the expiry.
func (s *Session) EnsureValid(ctx context.Context) (string, error) {
	if s.token != "" && s.clock.Now().Before(s.expiry) {
		return s.token, nil
	}
	return s.Renew(ctx)
}

// Renew forces a new handshake and login regardless of the cached token.
func (s *Session) Renew(ctx context.Context) (string, error) {
	s.Invalidate()

	ch, err := s.challenge(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"operation": {"login"},
		"username":  {s.creds.Username},
		"accessKey": {accessHash(ch.Token, s.creds.AccessKey)},
	}
	resp, err := s.transport.PostForm(ctx, form, "")
	if err != nil {
		return "", errors.NewAuthenticationError("crm", "login", "login request failed", err)
	}
	env, err := transport.DecodeEnvelope(resp)
	if err != nil {
		return "", errors.NewAuthenticationError("crm", "login", "unreadable login response", err)
	}
	if !env.Success {
		return "", errors.NewAuthenticationError("crm", "login", failureText(env), nil)
	}

	var result struct {
		SessionName string `json:"sessionName"`
		UserID      string `json:"userId"`
	}
	if err := env.DecodeResult(&result); err != nil {
		return "", errors.NewAuthenticationError("crm", "login", "unreadable login result", err)
	}
	if result.SessionName == "" {
		return "", errors.NewAuthenticationError("crm", "login", "login returned no session", nil)
	}

	lifetime := s.lifetime
	if declared := ch.lifetime(); declared > 0 {
		lifetime = declared
	}

	s.token = result.SessionName
	s.userID = result.UserID
	s.expiry = s.clock.Now().Add(lifetime)

	logging.FromContext(ctx).Debug().
		Str("user", s.creds.Username).
		Time("expires", s.expiry).
		Msg("CRM session established")
	return s.token, nil
}

// Invalidate drops the cached token so the next EnsureValid logs in again.
func (s *Session) Invalidate() {
	s.token = ""
	s.expiry = time.Time{}
}

// Expiry returns the instant the cached token expires, or zero when there is
// no token.
func (s *Session) Expiry() time.Time {
	return s.expiry
}

// UserID returns the CRM user id reported at login.
func (s *Session) UserID() string {
	return s.userID
}

type challenge struct {
	Token      string    `json:"token"`
	ServerTime epochTime `json:"serverTime"`
	ExpireTime epochTime `json:"expireTime"`
}

// lifetime is the server-declared validity, or zero when unusable.
func (c challenge) lifetime() time.Duration {
	if c.ServerTime == 0 || c.ExpireTime <= c.ServerTime {
		return 0
	}
	return time.Duration(c.ExpireTime-c.ServerTime) * time.Second
}

func (s *Session) challenge(ctx context.Context) (challenge, error) {
	params := url.Values{
		"operation": {"getchallenge"},
		"username":  {s.creds.Username},
	}
	resp, err := s.transport.Get(ctx, params, "")
	if err != nil {
		return challenge{}, errors.NewAuthenticationError("crm", "getchallenge", "handshake request failed", err)
	}
	env, err := transport.DecodeEnvelope(resp)
	if err != nil {
		return challenge{}, errors.NewAuthenticationError("crm", "getchallenge", "unreadable handshake response", err)
	}
	if !env.Success {
		return challenge{}, errors.NewAuthenticationError("crm", "getchallenge", failureText(env), nil)
	}

	var ch challenge
	if err := env.DecodeResult(&ch); err != nil {
		return challenge{}, errors.NewAuthenticationError("crm", "getchallenge", "unreadable challenge", err)
	}
	if ch.Token == "" {
		return challenge{}, errors.NewAuthenticationError("crm", "getchallenge", "challenge returned no token", nil)
	}
	return ch, nil
}

func accessHash(token, accessKey string) string {
	sum := md5.Sum([]byte(token + accessKey)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// epochTime decodes Unix seconds sent either as a JSON number or a string.
type epochTime int64

func (e *epochTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*e = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		var f float64
		if ferr := json.Unmarshal([]byte(raw), &f); ferr != nil {
			return err
		}
		n = int64(f)
	}
	*e = epochTime(n)
	return nil
}

func failureText(env *transport.Envelope) string {
	if env.Error == nil {
		return env.Raw
	}
	if env.Error.Code != "" {
		return env.Error.Code + ": " + env.Error.Message
	}
	return env.Error.Message
}
