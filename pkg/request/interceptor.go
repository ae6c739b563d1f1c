package request

import (
	"context"
	"strings"

	"github.com/mallfront/storefront/pkg/apierr"
)

// Defaults for the interceptor and classifier.
const (
	DefaultAuthHeader   = "Authorization"
	DefaultLoginPath    = "/login"
	DefaultHealthSuffix = "/health"
)

// DefaultPublicSuffixes are the path suffixes that never carry credentials.
var DefaultPublicSuffixes = []string{"/login", "/register", "health"}

// Redirect reasons shown on the login surface.
const (
	ReasonLogin   = "please log in"
	ReasonExpired = "session expired"
)

// TokenSource reads the current session token. An empty string means no
// session.
type TokenSource interface {
	Token() string
}

// Interceptor attaches credentials to outgoing requests, or rejects them
// with apierr.Unauthenticated when no session exists.
type Interceptor struct {
	Tokens TokenSource

	// PublicSuffixes bypass authentication. Matching is a plain suffix test
	// against the request path.
	PublicSuffixes []string

	// HealthSuffix marks probe paths. They are always public, whatever
	// PublicSuffixes holds.
	HealthSuffix string

	// Header receives the token; Scheme, when set, is prepended with a space
	// (e.g. "Bearer").
	Header string
	Scheme string

	// LoginPath is the redirect target for unauthenticated requests.
	LoginPath string
}

// Public reports whether path is exempt from authentication.
func (i *Interceptor) Public(path string) bool {
	if i.HealthSuffix != "" && strings.HasSuffix(path, i.HealthSuffix) {
		return true
	}
	for _, s := range i.PublicSuffixes {
		if s != "" && strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Intercept is a RequestStage.
func (i *Interceptor) Intercept(_ context.Context, req *Outgoing) Result {
	if i.Public(req.Path) {
		return Continue
	}

	var token string
	if i.Tokens != nil {
		token = i.Tokens.Token()
	}
	if token == "" {
		return Result{
			Err:     apierr.E(apierr.Unauthenticated, 0, ReasonLogin).WithPath(req.Path),
			Effects: []Effect{RedirectTo(i.loginPath(), ReasonLogin)},
		}
	}

	value := token
	if i.Scheme != "" {
		value = i.Scheme + " " + token
	}
	req.Header.Set(i.header(), value)
	return Continue
}

func (i *Interceptor) header() string {
	if i.Header == "" {
		return DefaultAuthHeader
	}
	return i.Header
}

func (i *Interceptor) loginPath() string {
	if i.LoginPath == "" {
		return DefaultLoginPath
	}
	return i.LoginPath
}
