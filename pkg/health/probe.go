package health

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/mallfront/storefront/pkg/apierr"
	"github.com/mallfront/storefront/pkg/request"
)

// Prober checks one service. A nil error means healthy.
type Prober interface {
	Probe(ctx context.Context, service string) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, service string) error

func (f ProberFunc) Probe(ctx context.Context, service string) error { return f(ctx, service) }

// Getter issues a GET through the request pipeline. *request.Pipeline
// satisfies it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*request.Envelope, error)
}

// HTTPProber probes GET /<service><Suffix> through the pipeline, so probe
// failures are classified as apierr.HealthCheckFailed and stay silent.
type HTTPProber struct {
	Client Getter
	// Suffix defaults to request.DefaultHealthSuffix.
	Suffix string
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context, service string) error {
	suffix := p.Suffix
	if suffix == "" {
		suffix = request.DefaultHealthSuffix
	}
	_, err := p.Client.Get(ctx, "/"+service+suffix, nil)
	return err
}

// defaultRPCTimeout bounds a gRPC health check when ctx has no deadline.
const defaultRPCTimeout = 5 * time.Second

// GRPCProber calls grpc.health.v1.Health/Check on a fixed address. The
// connection is opened lazily and reused across probes.
type GRPCProber struct {
	address string
	// service is the name sent in HealthCheckRequest; empty means the
	// server as a whole.
	service string
	opts    []grpc.DialOption

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPCProber returns a prober for address. Without dial options the
// connection uses insecure transport credentials.
func NewGRPCProber(address, service string, opts ...grpc.DialOption) *GRPCProber {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &GRPCProber{address: address, service: service, opts: opts}
}

// Address returns the probed endpoint.
func (p *GRPCProber) Address() string { return p.address }

// Probe implements Prober. Any answer other than SERVING is a failure.
func (p *GRPCProber) Probe(ctx context.Context, service string) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return p.failed(service, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRPCTimeout)
		defer cancel()
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return p.failed(service, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return p.failed(service, fmt.Errorf("status %s", resp.GetStatus()))
	}
	return nil
}

// Close releases the cached connection.
func (p *GRPCProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *GRPCProber) dial(ctx context.Context) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}
	conn, err := grpc.DialContext(ctx, p.address, p.opts...) //nolint:staticcheck // deprecated in 1.63 but DialContext is used for compat
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.address, err)
	}
	p.conn = conn
	return conn, nil
}

func (p *GRPCProber) failed(service string, cause error) error {
	return apierr.E(apierr.HealthCheckFailed, 0, request.MsgHealthCheck).
		WithPath("grpc://" + p.address + "/" + service).
		WithCause(cause)
}
