package directory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/returnnullptr/runa/telemetry"
)

// Resolver looks up the current dial target for a named service, typically
// backed by a remote directory service.
type Resolver interface {
	Resolve(ctx context.Context, service string) (endpoint string, err error)
}

// Manager resolves service names to dial targets for Ctx.Invoke, checking
// static configuration first, then a cache in front of a Resolver.
type Manager struct {
	static   map[string]string
	cache    Cache
	resolver Resolver
	ttl      time.Duration
	limiter  *rate.Limiter

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithStaticEndpoints registers services resolved without ever consulting
// the cache or resolver.
func WithStaticEndpoints(endpoints map[string]string) Option {
	return func(m *Manager) {
		for k, v := range endpoints {
			m.static[k] = v
		}
	}
}

// WithCache sets the cache placed in front of the resolver.
func WithCache(c Cache) Option {
	return func(m *Manager) { m.cache = c }
}

// WithResolver sets the Resolver consulted on a cache miss.
func WithResolver(r Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithTTL sets how long a resolved endpoint is cached before being
// considered stale. Defaults to 5 minutes.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithRefreshLimit caps how many resolver calls per second the manager may
// issue across all services, protecting the remote directory from bursts.
func WithRefreshLimit(qps float64) Option {
	return func(m *Manager) { m.limiter = rate.NewLimiter(rate.Limit(qps), 1) }
}

// WithLogger sets the logger used for resolution events.
func WithLogger(l telemetry.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics recorder used for cache hit/miss counters.
func WithMetrics(met telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// WithTracer sets the tracer used to span resolver calls.
func WithTracer(t telemetry.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// NewManager constructs a Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		static:  make(map[string]string),
		cache:   NewMemoryCache(),
		ttl:     5 * time.Minute,
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the dial target for service: the static table first, then
// the cache, then the Resolver (rate-limited and written back to the
// cache on success).
func (m *Manager) Resolve(ctx context.Context, service string) (string, error) {
	if endpoint, ok := m.static[service]; ok {
		return endpoint, nil
	}

	ctx, span := m.tracer.Start(ctx, "directory.resolve")
	defer span.End()

	if endpoint, ok, err := m.cache.Get(ctx, service); err != nil {
		m.logger.Warn(ctx, "directory cache lookup failed", "service", service, "error", err)
	} else if ok {
		m.metrics.IncCounter("directory.cache_hit", 1, "service", service)
		return endpoint, nil
	}
	m.metrics.IncCounter("directory.cache_miss", 1, "service", service)

	if m.resolver == nil {
		return "", fmt.Errorf("directory: %q not in static endpoints and no resolver configured", service)
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("directory: rate limit wait for %q: %w", service, err)
		}
	}

	endpoint, err := m.resolver.Resolve(ctx, service)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("directory: resolving %q: %w", service, err)
	}
	if err := m.cache.Set(ctx, service, endpoint, m.ttl); err != nil {
		m.logger.Warn(ctx, "directory cache write failed", "service", service, "error", err)
	}
	return endpoint, nil
}

// Invalidate drops a cached resolution, forcing the next Resolve to
// re-consult the Resolver.
func (m *Manager) Invalidate(ctx context.Context, service string) error {
	return m.cache.Delete(ctx, service)
}
