package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mallfront/storefront/client/internal/config"
	"github.com/mallfront/storefront/pkg/health"
	"github.com/mallfront/storefront/pkg/request"
	"github.com/mallfront/storefront/pkg/session"
)

// openSessions returns the session store described by cfg: the session file
// with the token_env override layered on top.
func openSessions(cfg *config.Config) (session.Store, error) {
	path, err := cfg.Session.ResolvedPath()
	if err != nil {
		return nil, err
	}
	f, err := session.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return session.EnvOverlay{Store: f, Var: cfg.Session.TokenEnv}, nil
}

// buildPipeline wires a request pipeline from cfg. nav and notify may be
// nil, in which case redirects and notifications are dropped.
func buildPipeline(cfg *config.Config, tokens request.TokenSource, nav request.Navigator, notify request.Notifier) (*request.Pipeline, error) {
	opts := []request.Option{}
	if nav != nil {
		opts = append(opts, request.WithNavigator(nav))
	}
	if notify != nil {
		opts = append(opts, request.WithNotifier(notify))
	}
	p, err := request.New(request.Config{
		BaseURL: cfg.Backend.URL(),
		Timeout: cfg.Backend.Timeout,
		TLS: request.TLSConfig{
			InsecureSkipVerify: cfg.Backend.TLS.InsecureSkipVerify,
			CAFile:             cfg.Backend.TLS.CAFile,
		},
		AuthHeader:     cfg.Auth.Header,
		AuthScheme:     cfg.Auth.Scheme,
		PublicSuffixes: cfg.Auth.PublicSuffixes,
		LoginPath:      cfg.Auth.LoginPath,
		HealthSuffix:   cfg.Health.Suffix,
	}, tokens, opts...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return p, nil
}

// buildAggregator wires the health aggregator: HTTP probes through p by
// default, gRPC health checks for services configured with probe: grpc.
// The returned closers release the gRPC connections.
func buildAggregator(cfg *config.Config, p *request.Pipeline) (*health.Aggregator, []io.Closer) {
	var (
		opts    = []health.Option{health.WithConcurrency(cfg.Health.Concurrency)}
		closers []io.Closer
	)
	for _, svc := range cfg.Health.Services {
		if svc.Probe != config.ProbeGRPC {
			continue
		}
		gp := health.NewGRPCProber(svc.Address, svc.GRPCService)
		opts = append(opts, health.WithProber(svc.Name, gp))
		closers = append(closers, gp)
		slog.Debug("health: grpc probe", "service", svc.Name, "address", svc.Address)
	}
	fallback := health.HTTPProber{Client: p, Suffix: cfg.Health.Suffix}
	return health.NewAggregator(cfg.Health.Names(), fallback, opts...), closers
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Debug("close probe connection", "err", err)
		}
	}
}
