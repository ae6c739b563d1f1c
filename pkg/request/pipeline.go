package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mallfront/storefront/pkg/apierr"
)

// Config configures a Pipeline.
type Config struct {
	// BaseURL is the single backend address every path is resolved against,
	// e.g. "http://localhost:8080/api".
	BaseURL string

	// Timeout bounds one exchange. Zero means DefaultTimeout.
	Timeout time.Duration
	TLS     TLSConfig

	// AuthHeader and AuthScheme control how the token is attached.
	AuthHeader string
	AuthScheme string

	// PublicSuffixes bypass authentication. Nil means DefaultPublicSuffixes.
	PublicSuffixes []string

	LoginPath    string
	HealthSuffix string
}

// Pipeline wraps the transport client with the request stages and the
// response classifier.
type Pipeline struct {
	base       *url.URL
	client     Doer
	stages     []RequestStage
	extra      []RequestStage
	classifier Classifier
	effector   Effector
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClient replaces the HTTP client (tests, custom transports).
func WithClient(d Doer) Option {
	return func(p *Pipeline) { p.client = d }
}

// WithNavigator sets the collaborator that executes redirect effects.
func WithNavigator(n Navigator) Option {
	return func(p *Pipeline) { p.effector.Navigator = n }
}

// WithNotifier sets the collaborator that executes notification effects.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.effector.Notifier = n }
}

// WithStage appends a request stage that runs after the interceptor.
func WithStage(s RequestStage) Option {
	return func(p *Pipeline) { p.extra = append(p.extra, s) }
}

// New builds a Pipeline. tokens is read once per call and never written.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Pipeline, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("request: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("request: base url %q must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("request: base url %q has no host", cfg.BaseURL)
	}

	suffixes := cfg.PublicSuffixes
	if suffixes == nil {
		suffixes = DefaultPublicSuffixes
	}
	healthSuffix := cfg.HealthSuffix
	if healthSuffix == "" {
		healthSuffix = DefaultHealthSuffix
	}
	interceptor := &Interceptor{
		Tokens:         tokens,
		PublicSuffixes: suffixes,
		HealthSuffix:   healthSuffix,
		Header:         cfg.AuthHeader,
		Scheme:         cfg.AuthScheme,
		LoginPath:      cfg.LoginPath,
	}

	p := &Pipeline{
		base:       base,
		stages:     []RequestStage{validatePath, RequestID(), interceptor.Intercept},
		classifier: Classifier{HealthSuffix: healthSuffix, LoginPath: cfg.LoginPath},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = append(p.stages, p.extra...)

	if p.client == nil {
		client, err := buildHTTPClient(cfg.Timeout, cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("request: build http client: %w", err)
		}
		p.client = client
	}
	return p, nil
}

// BaseURL returns the configured backend address.
func (p *Pipeline) BaseURL() string { return p.base.String() }

// Send runs req through the stages, the transport and the classifier.
//
// On success the full decoded envelope is returned. On rejection the error
// is an *apierr.Error (or wraps apierr.ErrInvalidRequest), and every effect
// attached to the rejection has already been executed.
func (p *Pipeline) Send(ctx context.Context, req *Outgoing) (*Envelope, error) {
	if req == nil {
		req = &Outgoing{}
	}
	for _, stage := range p.stages {
		r := stage(ctx, req)
		if r.Err != nil {
			p.effector.Run(r.Effects)
			p.logRejection(req, r.Err, "stage")
			return nil, r.Err
		}
	}

	x := p.transport(ctx, req)
	r := p.classifier.Classify(x)
	p.effector.Run(r.Effects)
	if r.Err != nil {
		p.logRejection(req, r.Err, "classifier")
		return nil, r.Err
	}
	slog.Debug("request: resolved",
		"method", req.Method, "path", req.Path, "status", x.Status,
		"request_id", req.Header.Get(HeaderRequestID))
	return r.Envelope, nil
}

// Get sends a GET with optional query parameters.
func (p *Pipeline) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return p.Send(ctx, &Outgoing{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST with a JSON body.
func (p *Pipeline) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return p.Send(ctx, &Outgoing{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT with an optional JSON body.
func (p *Pipeline) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return p.Send(ctx, &Outgoing{Method: http.MethodPut, Path: path, Body: body})
}

// Delete sends a DELETE with an optional JSON body.
func (p *Pipeline) Delete(ctx context.Context, path string, body any) (*Envelope, error) {
	return p.Send(ctx, &Outgoing{Method: http.MethodDelete, Path: path, Body: body})
}

// transport performs the HTTP exchange. It never returns an error: every
// failure is folded into the Exchange for the classifier.
func (p *Pipeline) transport(ctx context.Context, req *Outgoing) Exchange {
	x := Exchange{Path: req.Path}

	httpReq, err := p.buildRequest(ctx, req)
	if err != nil {
		x.Err = err
		return x
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		x.Err = err
		return x
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		x.Err = fmt.Errorf("read body: %w", err)
		return x
	}
	x.Status = resp.StatusCode
	x.Body = body
	return x
}

func (p *Pipeline) buildRequest(ctx context.Context, req *Outgoing) (*http.Request, error) {
	u := *p.base
	u.Path = strings.TrimRight(p.base.Path, "/") + req.Path
	u.RawPath = ""
	u.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (p *Pipeline) logRejection(req *Outgoing, err error, at string) {
	attrs := []any{"method", req.Method, "path", req.Path, "at", at, "err", err}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		attrs = append(attrs, "kind", ae.Kind, "code", ae.Status)
		switch ae.Kind {
		case apierr.HealthCheckFailed:
			slog.Debug("request: rejected", attrs...)
			return
		case apierr.Unknown:
			slog.Warn("request: unrecognised response", attrs...)
			return
		}
	}
	slog.Info("request: rejected", attrs...)
}
