package request

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mallfront/storefront/pkg/apierr"
)

// User-facing messages produced by the classifier.
const (
	MsgForbidden   = "forbidden"
	MsgServerBusy  = "server busy"
	MsgHealthCheck = "health check failed"
)

// Exchange is the settled outcome of one transport attempt.
type Exchange struct {
	Path string
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	Body   []byte
	// Err is the transport error (dial failure, timeout, cancelled context).
	Err error
}

// Transported reports whether an HTTP 2xx response was received.
func (x Exchange) Transported() bool {
	return x.Err == nil && x.Status >= 200 && x.Status < 300
}

// Classifier maps an Exchange to a Result. It is a pure function of its
// input: it performs no I/O and returns side effects as values.
type Classifier struct {
	// HealthSuffix marks probe paths whose failures are silent.
	HealthSuffix string
	// LoginPath is the redirect target for authentication failures.
	LoginPath string
}

// Classify maps x to a resolved envelope or a classified rejection.
func (c Classifier) Classify(x Exchange) Result {
	if x.Transported() {
		return c.classifyEnvelope(x)
	}
	return c.classifyFailure(x)
}

// classifyEnvelope handles a 2xx response by inspecting the envelope code.
func (c Classifier) classifyEnvelope(x Exchange) Result {
	env, ok := decodeEnvelope(x.Body)
	if !ok || c.isHealth(x.Path) {
		// Undecodable bodies carry no code; probe bodies are not interpreted.
		return Result{Envelope: env}
	}
	if env.Success() {
		return Result{Envelope: env}
	}

	code := *env.Code
	switch code {
	case CodeBadRequest:
		msg := orDefault(env.Msg, "bad request")
		return c.reject(apierr.BadRequest, code, msg, x, NotifyError(msg))
	case CodeUnauthorized:
		return c.reject(apierr.Unauthenticated, code, ReasonLogin, x, RedirectTo(c.loginPath(), ReasonLogin))
	case CodeSessionExpired:
		return c.reject(apierr.SessionExpired, code, ReasonExpired, x, RedirectTo(c.loginPath(), ReasonExpired))
	case CodeServerError:
		msg := orDefault(env.Msg, "server error")
		return c.reject(apierr.ServerError, code, msg, x, NotifyError(msg))
	default:
		msg := unknownMessage(code)
		return c.reject(apierr.Unknown, code, msg, x, NotifyError(msg))
	}
}

// classifyFailure handles transport errors and non-2xx responses. A missing
// response has status 0 and lands in the unknown branch.
func (c Classifier) classifyFailure(x Exchange) Result {
	if c.isHealth(x.Path) {
		return Result{Err: apierr.E(apierr.HealthCheckFailed, x.Status, MsgHealthCheck).
			WithPath(x.Path).WithCause(x.Err)}
	}
	switch x.Status {
	case http.StatusBadRequest:
		msg := orDefault(bodyMessage(x.Body), "bad request")
		return c.reject(apierr.BadRequest, x.Status, msg, x, NotifyError(msg))
	case http.StatusUnauthorized:
		return c.reject(apierr.Unauthenticated, x.Status, ReasonLogin, x, RedirectTo(c.loginPath(), ReasonLogin))
	case http.StatusForbidden:
		return c.reject(apierr.Forbidden, x.Status, MsgForbidden, x, NotifyError(MsgForbidden))
	case CodeSessionExpired:
		return c.reject(apierr.SessionExpired, x.Status, ReasonExpired, x, RedirectTo(c.loginPath(), ReasonExpired))
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return c.reject(apierr.ServerError, x.Status, MsgServerBusy, x, NotifyError(MsgServerBusy))
	default:
		msg := unknownMessage(x.Status)
		return c.reject(apierr.Unknown, x.Status, msg, x, NotifyError(msg))
	}
}

func (c Classifier) reject(k apierr.Kind, status int, msg string, x Exchange, effects ...Effect) Result {
	return Result{
		Err:     apierr.E(k, status, msg).WithPath(x.Path).WithCause(x.Err),
		Effects: effects,
	}
}

func (c Classifier) isHealth(path string) bool {
	suffix := c.HealthSuffix
	if suffix == "" {
		suffix = DefaultHealthSuffix
	}
	return strings.HasSuffix(path, suffix)
}

func (c Classifier) loginPath() string {
	if c.LoginPath == "" {
		return DefaultLoginPath
	}
	return c.LoginPath
}

// bodyMessage extracts "msg" from an error body, if it is an envelope.
func bodyMessage(body []byte) string {
	env, ok := decodeEnvelope(body)
	if !ok {
		return ""
	}
	return env.Msg
}

func unknownMessage(code int) string {
	return fmt.Sprintf("unknown error %d", code)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
