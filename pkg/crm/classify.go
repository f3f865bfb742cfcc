package crm

import (
	"strings"

	"github.com/agentstation/crmsync/internal/transport"
	"github.com/agentstation/crmsync/pkg/errors"
)

// Error codes the webservice reports for classified failures.
var (
	sessionCodes = map[string]bool{
		"INVALID_SESSIONID":       true,
		"SESSION_EXPIRED":         true,
		"AUTHENTICATION_REQUIRED": true,
	}
	staleCodes = map[string]bool{
		"ACCESS_DENIED":        true,
		"RECORD_NOT_FOUND":     true,
		"INVALID_ID":           true,
		"INVALID_ID_ATTRIBUTE": true,
	}
	duplicateCodes = map[string]bool{
		"DUPLICATE_RECORD":    true,
		"DUPLICATES_DETECTED": true,
	}
)

// Message signatures used when the error code is missing or unknown. These
// match the free-text responses older webservice versions return.
var (
	duplicateSignatures = []string{"duplicate(s) detected", "duplicate"}
	staleSignatures     = []string{
		"access_denied",
		"permission to perform the operation is denied",
		"does not exist",
		"record you are trying to access",
		"invalid",
	}
	sessionSignatures = []string{"invalid_sessionid", "session"}
)

// classify turns an unsuccessful envelope into a tagged RemoteError.
func classify(op errors.Op, id string, env *transport.Envelope) *errors.RemoteError {
	var code, message string
	if env.Error != nil {
		code, message = env.Error.Code, env.Error.Message
	}
	if message == "" {
		message = env.Raw
	}
	rerr := errors.NewRemoteError(op, id, kindOf(op, code, message+" "+env.Raw), code, message)
	rerr.Response = env.Raw
	return rerr
}

func kindOf(op errors.Op, code, text string) errors.Kind {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case sessionCodes[code]:
		return errors.KindSession
	case duplicateCodes[code] && op == errors.OpCreate:
		return errors.KindDuplicate
	case staleCodes[code] && op != errors.OpCreate:
		return errors.KindStaleIdentifier
	}

	text = strings.ToLower(text)
	if contains(text, sessionSignatures) {
		return errors.KindSession
	}
	if op == errors.OpCreate {
		if contains(text, duplicateSignatures) {
			return errors.KindDuplicate
		}
		return errors.KindOther
	}
	if contains(text, staleSignatures) {
		return errors.KindStaleIdentifier
	}
	return errors.KindOther
}

func contains(text string, signatures []string) bool {
	for _, sig := range signatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}

// transportError wraps a transport failure (network, status, decoding).
func transportError(op errors.Op, id string, err error) *errors.RemoteError {
	return &errors.RemoteError{Op: op, ID: id, Kind: errors.KindOther, Err: err}
}
