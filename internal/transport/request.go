package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Envelope is the JSON body returned by every webservice operation.
type Envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Failure        `json:"error,omitempty"`

	// Raw is the undecoded response body.
	Raw string `json:"-"`
}

// Failure is the error description of an unsuccessful envelope.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeResult decodes the envelope's result payload into target.
func (e *Envelope) DecodeResult(target any) error {
	if len(e.Result) == 0 {
		return errors.NewParseError("json", "result", "empty result", nil)
	}
	if err := json.Unmarshal(e.Result, target); err != nil {
		return errors.WrapParse("json", "result", err)
	}
	return nil
}

// DecodeEnvelope reads and decodes a webservice response. Transport-level
// failures (non-200 status, unreadable or non-JSON body) are returned as
// errors; an envelope with success=false is returned without error.
func DecodeEnvelope(resp *http.Response) (*Envelope, error) {
	var env Envelope
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	env.Raw = string(body)
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.WrapParse("json", "response", err)
	}
	return &env, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.Method + " " + resp.Request.URL.Path
		}
		return nil, &errors.APIError{
			Service:    "crm",
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   endpoint,
		}
	}
	return body, nil
}
