package request

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/mallfront/storefront/pkg/apierr"
)

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-Id"

// Outgoing is a request before transmission. Request stages mutate it in
// place.
type Outgoing struct {
	Method string
	// Path is relative to the pipeline base URL and must start with "/".
	// An inline query string is moved into Query by the validation stage.
	Path   string
	Header http.Header
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Result is what a stage or the classifier hands back: either the resolved
// envelope or a rejection, plus the effects to run at the boundary.
// For request stages a nil Err means "continue".
type Result struct {
	Envelope *Envelope
	Err      error
	Effects  []Effect
}

// Continue is the Result of a request stage that lets the request through.
var Continue = Result{}

// RequestStage inspects and possibly mutates an outgoing request.
type RequestStage func(ctx context.Context, req *Outgoing) Result

// validatePath rejects requests without a usable relative path and splits an
// inline query string into req.Query.
func validatePath(_ context.Context, req *Outgoing) Result {
	if req == nil || strings.TrimSpace(req.Path) == "" {
		return Result{Err: fmt.Errorf("%w: empty path", apierr.ErrInvalidRequest)}
	}
	u, err := url.Parse(req.Path)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", apierr.ErrInvalidRequest, err)}
	}
	if u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return Result{Err: fmt.Errorf("%w: path %q must be relative and start with /", apierr.ErrInvalidRequest, req.Path)}
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if u.RawQuery != "" {
		if req.Query == nil {
			req.Query = url.Values{}
		}
		for k, vs := range u.Query() {
			for _, v := range vs {
				req.Query.Add(k, v)
			}
		}
	}
	req.Path = u.Path
	return Continue
}

// RequestID returns a stage that stamps a fresh UUID into X-Request-Id
// unless the caller already set one.
func RequestID() RequestStage {
	return func(_ context.Context, req *Outgoing) Result {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return Continue
	}
}
