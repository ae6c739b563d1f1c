package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mallfront/storefront/pkg/apierr"
)

// Aggregator probes a fixed list of services. It holds no results between
// calls; every CheckAll recomputes the snapshot from scratch.
//
// An Aggregator is safe for concurrent use once built.
type Aggregator struct {
	services []string
	fallback Prober
	probers  map[string]Prober
	limit    int
	now      func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithProber overrides the prober for one service.
func WithProber(service string, p Prober) Option {
	return func(a *Aggregator) { a.probers[service] = p }
}

// WithConcurrency caps the number of probes in flight. n <= 0 means no cap.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.limit = n }
}

// WithClock replaces time.Now for CheckedAt and latency measurement.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an Aggregator for services. fallback probes every
// service without a WithProber override. Duplicate names are dropped,
// keeping the first occurrence.
func NewAggregator(services []string, fallback Prober, opts ...Option) *Aggregator {
	a := &Aggregator{
		fallback: fallback,
		probers:  make(map[string]Prober),
		now:      time.Now,
	}
	seen := make(map[string]bool, len(services))
	for _, s := range services {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		a.services = append(a.services, s)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Services returns the configured service names in order.
func (a *Aggregator) Services() []string {
	out := make([]string, len(a.services))
	copy(out, a.services)
	return out
}

// CheckAll probes every configured service and returns the snapshot. It
// never fails: probe errors land in the matching ServiceHealth entry.
func (a *Aggregator) CheckAll(ctx context.Context) Snapshot {
	results := make([]ServiceHealth, len(a.services))

	g := new(errgroup.Group)
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, name := range a.services {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = ServiceHealth{Status: StatusUnknown, Error: err.Error()}
				return nil
			}
			results[i] = a.probe(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{
		CheckedAt: a.now(),
		Services:  make(map[string]ServiceHealth, len(a.services)),
	}
	for i, name := range a.services {
		snap.Services[name] = results[i]
	}

	slog.Debug("health: check complete",
		"services", len(a.services),
		"unhealthy", snap.Count(StatusUnhealthy),
		"unknown", snap.Count(StatusUnknown),
		"overall", snap.Overall())
	return snap
}

// probe runs one prober and converts its outcome. A panicking prober is
// reported as unhealthy instead of taking the whole check down.
func (a *Aggregator) probe(ctx context.Context, name string) (out ServiceHealth) {
	p := a.proberFor(name)
	if p == nil {
		return ServiceHealth{Status: StatusUnknown, Error: "no prober configured"}
	}

	start := a.now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("health: probe panicked", "service", name, "panic", r)
			out = ServiceHealth{
				Status: StatusUnhealthy,
				Kind:   apierr.HealthCheckFailed,
				Error:  fmt.Sprintf("probe panicked: %v", r),
			}
		}
		out.Latency = a.now().Sub(start)
	}()

	if err := p.Probe(ctx, name); err != nil {
		slog.Debug("health: probe failed", "service", name, "err", err)
		kind := apierr.KindOf(err)
		if kind == "" {
			kind = apierr.Unknown
		}
		return ServiceHealth{
			Status: StatusUnhealthy,
			Kind:   kind,
			Error:  err.Error(),
		}
	}
	return ServiceHealth{Status: StatusHealthy}
}

func (a *Aggregator) proberFor(name string) Prober {
	if p, ok := a.probers[name]; ok {
		return p
	}
	return a.fallback
}
