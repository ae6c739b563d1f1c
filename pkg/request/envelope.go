package request

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Application status codes carried in the envelope "code" field.
const (
	CodeOK             = 200
	CodeBadRequest     = 400
	CodeUnauthorized   = 401
	CodeSessionExpired = 499
	CodeServerError    = 500

	// CodeReservedMin is the start of the range downstream services may use
	// for their own success codes.
	CodeReservedMin = 1000
)

// Envelope is the decoded body of a backend response.
type Envelope struct {
	// Code is nil when the body carried no "code" field.
	Code *int            `json:"code,omitempty"`
	Msg  string          `json:"msg,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`

	// Raw is the undecoded response body.
	Raw []byte `json:"-"`
}

// Success reports whether the envelope code means application-level success:
// absent, 200, or anything in the reserved range starting at 1000.
func (e *Envelope) Success() bool {
	if e == nil || e.Code == nil {
		return true
	}
	c := *e.Code
	return c == CodeOK || c >= CodeReservedMin
}

// StatusCode returns the envelope code, or 0 when absent.
func (e *Envelope) StatusCode() int {
	if e == nil || e.Code == nil {
		return 0
	}
	return *e.Code
}

// DecodeData unmarshals the envelope's data payload into T.
// A missing payload yields the zero value of T.
func DecodeData[T any](env *Envelope) (T, error) {
	var out T
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("request: decode data: %w", err)
	}
	return out, nil
}

// decodeEnvelope parses body as an envelope. ok is false when body is
// non-empty and not a JSON object.
func decodeEnvelope(body []byte) (env *Envelope, ok bool) {
	env = &Envelope{Raw: body}
	if len(bytes.TrimSpace(body)) == 0 {
		return env, true
	}
	if err := json.Unmarshal(body, env); err != nil {
		return &Envelope{Raw: body}, false
	}
	return env, true
}
