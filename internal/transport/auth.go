package transport

import (
	"net/url"
)

// Authenticator applies a session token to request parameters.
type Authenticator interface {
	Apply(params url.Values, token string)
}

// SessionAuth sends the session token as a query or form parameter.
type SessionAuth struct {
	Param string
}

// DefaultSessionParam is the parameter carrying the webservice session token.
const DefaultSessionParam = "sessionName"

// Apply implements the Authenticator interface for SessionAuth.
func (a *SessionAuth) Apply(params url.Values, token string) {
	if params == nil || token == "" {
		return
	}
	param := a.Param
	if param == "" {
		param = DefaultSessionParam
	}
	params.Set(param, token)
}
