package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mallfront/storefront/pkg/apierr"
	"github.com/mallfront/storefront/pkg/request"
)

// noisy counts effects; health probes must never produce any.
type noisy struct{ n atomic.Int32 }

func (n *noisy) GoTo(string, string) { n.n.Add(1) }
func (n *noisy) Error(string)        { n.n.Add(1) }
func (n *noisy) Loading(string)      {}

type noToken struct{}

func (noToken) Token() string { return "" }

func newPipeline(t *testing.T, h http.Handler, timeout time.Duration, fx *noisy) *request.Pipeline {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := request.New(request.Config{BaseURL: srv.URL + "/api", Timeout: timeout}, noToken{},
		request.WithNavigator(fx), request.WithNotifier(fx))
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return p
}

func TestCheckAll_MixedOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/carts/health", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	mux.HandleFunc("/api/orders/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "OK")
	})
	mux.HandleFunc("/api/users/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	fx := &noisy{}
	p := newPipeline(t, mux, 150*time.Millisecond, fx)
	agg := NewAggregator([]string{"carts", "orders", "users"}, HTTPProber{Client: p})

	snap := agg.CheckAll(context.Background())

	want := map[string]Status{
		"carts":  StatusUnhealthy,
		"orders": StatusHealthy,
		"users":  StatusUnhealthy,
	}
	if diff := cmp.Diff(want, snap.Statuses()); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if k := snap.Services["users"].Kind; k != apierr.HealthCheckFailed {
		t.Errorf("users kind = %q, want health_check_failed", k)
	}
	if n := fx.n.Load(); n != 0 {
		t.Errorf("health probes produced %d effects, want 0", n)
	}
	if snap.Overall() != StatusUnhealthy {
		t.Errorf("overall = %q, want unhealthy", snap.Overall())
	}
}

func TestCheckAll_EveryServiceExactlyOnce(t *testing.T) {
	agg := NewAggregator([]string{"carts", "orders", "carts", "", "pays"},
		ProberFunc(func(context.Context, string) error { return nil }))

	snap := agg.CheckAll(context.Background())
	if diff := cmp.Diff([]string{"carts", "orders", "pays"}, snap.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"carts", "orders", "pays"}, agg.Services()); diff != "" {
		t.Errorf("services mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckAll_FailureIsIsolated(t *testing.T) {
	prober := ProberFunc(func(_ context.Context, svc string) error {
		switch svc {
		case "orders":
			panic("boom")
		case "users":
			return apierr.E(apierr.HealthCheckFailed, 503, "health check failed")
		}
		return nil
	})
	agg := NewAggregator([]string{"carts", "orders", "users", "pays"}, prober)

	snap := agg.CheckAll(context.Background())
	want := map[string]Status{
		"carts":  StatusHealthy,
		"orders": StatusUnhealthy,
		"users":  StatusUnhealthy,
		"pays":   StatusHealthy,
	}
	if diff := cmp.Diff(want, snap.Statuses()); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckAll_RespectsConcurrencyLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	prober := ProberFunc(func(context.Context, string) error {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		return nil
	})
	services := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	agg := NewAggregator(services, prober, WithConcurrency(2))

	snap := agg.CheckAll(context.Background())
	if got := snap.Count(StatusHealthy); got != len(services) {
		t.Errorf("healthy = %d, want %d", got, len(services))
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestCheckAll_RunsConcurrently(t *testing.T) {
	// Three probes that each wait for the others prove they overlap.
	var wg sync.WaitGroup
	wg.Add(3)
	prober := ProberFunc(func(ctx context.Context, _ string) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("probes ran sequentially")
		}
	})
	agg := NewAggregator([]string{"carts", "orders", "users"}, prober)

	snap := agg.CheckAll(context.Background())
	if snap.Overall() != StatusHealthy {
		t.Errorf("overall = %q, want healthy: %+v", snap.Overall(), snap.Services)
	}
}

func TestCheckAll_CancelledContextIsUnknown(t *testing.T) {
	var called atomic.Int32
	prober := ProberFunc(func(context.Context, string) error {
		called.Add(1)
		return nil
	})
	agg := NewAggregator([]string{"carts", "orders"}, prober)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := agg.CheckAll(ctx)

	for _, name := range []string{"carts", "orders"} {
		if st := snap.Status(name); st != StatusUnknown {
			t.Errorf("%s = %q, want unknown", name, st)
		}
	}
	if n := called.Load(); n != 0 {
		t.Errorf("prober called %d times after cancel, want 0", n)
	}
}

func TestCheckAll_ProberOverrideAndClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fallback := ProberFunc(func(context.Context, string) error { return errors.New("down") })
	override := ProberFunc(func(context.Context, string) error { return nil })

	agg := NewAggregator([]string{"carts", "gateway"}, fallback,
		WithProber("gateway", override),
		WithClock(func() time.Time { return fixed }))

	snap := agg.CheckAll(context.Background())
	if !snap.CheckedAt.Equal(fixed) {
		t.Errorf("CheckedAt = %v, want %v", snap.CheckedAt, fixed)
	}
	if snap.Status("gateway") != StatusHealthy || snap.Status("carts") != StatusUnhealthy {
		t.Errorf("statuses = %v", snap.Statuses())
	}
	if k := snap.Services["carts"].Kind; k != apierr.Unknown {
		t.Errorf("plain error kind = %q, want unknown", k)
	}
}

func TestCheckAll_NoProber(t *testing.T) {
	snap := NewAggregator([]string{"carts"}, nil).CheckAll(context.Background())
	if snap.Status("carts") != StatusUnknown {
		t.Errorf("carts = %q, want unknown", snap.Status("carts"))
	}
}

func TestSnapshot_Overall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusUnknown},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one unknown", []Status{StatusHealthy, StatusUnknown}, StatusUnknown},
		{"unhealthy wins", []Status{StatusUnknown, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := Snapshot{Services: map[string]ServiceHealth{}}
			for i, st := range tc.statuses {
				snap.Services[string(rune('a'+i))] = ServiceHealth{Status: st}
			}
			if got := snap.Overall(); got != tc.want {
				t.Errorf("Overall() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSnapshot_StatusOfUnprobed(t *testing.T) {
	if st := (Snapshot{}).Status("ghost"); st != StatusUnknown {
		t.Errorf("Status(ghost) = %q, want unknown", st)
	}
}
