// Package manager runs the lifecycle of one provisioning session: it starts
// the service instances a settings tree needs, collects their settings
// patches, and tears everything down again.
//
// States follow Idle → Starting → Running → Stopping → Idle. Start is only
// allowed from Idle; once Start returns (successfully or not) the manager is
// Running and Stop must be called to release whatever was started.
package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/metrics"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/resolver"
	"github.com/marmos91/ephemera/pkg/runtime"
	"github.com/marmos91/ephemera/pkg/settings"
)

// ErrSessionActive is returned by Start when a session is already running.
var ErrSessionActive = errors.New("manager: a session is already active")

// State is the lifecycle state of a Manager.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Service describes a started instance.
type Service struct {
	Kind     provider.Kind     `json:"kind" yaml:"kind"`
	Image    string            `json:"image" yaml:"image"`
	Endpoint provider.Endpoint `json:"endpoint" yaml:"endpoint"`
	// URL is the client connection string, when the provider can build one.
	URL    string           `json:"url,omitempty" yaml:"url,omitempty"`
	Config *provider.Config `json:"-" yaml:"-"`

	instance runtime.Instance
	ready    bool
}

// StopResult is the outcome of terminating one instance.
type StopResult struct {
	Kind provider.Kind
	Err  error
}

// StopError joins the failures in results, or returns nil when every
// instance stopped cleanly.
func StopError(results []StopResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", r.Kind, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry replaces the default provider registry.
func WithRegistry(r *provider.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithResolverOptions configures the resolver used to plan a session.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(m *Manager) {
		m.resolverOpts = append(m.resolverOpts, opts...)
	}
}

// WithMetrics records lifecycle metrics into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithProbe checks each started instance with its provider's client probe,
// when it has one, before the instance is considered ready.
func WithProbe(timeout time.Duration) Option {
	return func(m *Manager) {
		m.probe = true
		m.probeTimeout = timeout
	}
}

// Manager owns the instances of one session.
type Manager struct {
	runtime      runtime.Runtime
	registry     *provider.Registry
	resolverOpts []resolver.Option
	resolver     *resolver.Resolver
	metrics      *metrics.Metrics
	probe        bool
	probeTimeout time.Duration

	mu       sync.Mutex
	state    State
	services []*Service // start order
	patch    *settings.Map
}

// New creates a Manager that starts instances through rt.
func New(rt runtime.Runtime, opts ...Option) *Manager {
	m := &Manager{
		runtime:  rt,
		registry: provider.DefaultRegistry(),
		patch:    settings.NewMap(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resolver = resolver.New(m.registry, m.resolverOpts...)
	return m
}

// Resolver returns the resolver the manager plans with.
func (m *Manager) Resolver() *resolver.Resolver {
	return m.resolver
}

// Start provisions every provider s needs, in registry order, and returns
// the aggregated settings patch. The first failure aborts the session start;
// instances started so far stay tracked until Stop.
func (m *Manager) Start(ctx context.Context, s *settings.Settings) (*settings.Map, error) {
	if s == nil {
		return nil, settings.ErrNilSettings
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	m.state = StateStarting
	m.patch = settings.NewMap()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = StateRunning
		m.mu.Unlock()
	}()

	kinds, err := m.resolver.SelectNeeded(s)
	if err != nil {
		return nil, fmt.Errorf("select providers: %w", err)
	}
	if len(kinds) == 0 {
		logger.InfoCtx(ctx, "No backing services needed")
		return settings.NewMap(), nil
	}
	logger.InfoCtx(ctx, "Starting backing services", logger.KeyProviders, kinds)

	for _, kind := range kinds {
		if err := m.startOne(logger.ProviderContext(ctx, string(kind)), kind, s); err != nil {
			m.metrics.StartFailed(kind)
			return nil, fmt.Errorf("start %s: %w", kind, err)
		}
	}

	return m.Patch(), nil
}

func (m *Manager) startOne(ctx context.Context, kind provider.Kind, s *settings.Settings) error {
	p, err := m.registry.Get(kind)
	if err != nil {
		return err
	}
	cfg, err := m.resolver.Resolve(kind, s)
	if err != nil {
		return err
	}
	desc, err := p.BuildInstance(cfg)
	if err != nil {
		return err
	}

	began := time.Now()
	logger.DebugCtx(ctx, "Building instance", logger.KeyImage, desc.Image)
	inst, err := m.runtime.Build(ctx, desc)
	if err != nil {
		return err
	}

	svc := &Service{Kind: kind, Image: desc.Image, Config: cfg, instance: inst}
	m.track(svc)

	if err := inst.Start(ctx); err != nil {
		return err
	}

	host, err := inst.Host(ctx)
	if err != nil {
		return err
	}
	port, err := inst.MappedPort(ctx, desc.Port)
	if err != nil {
		return err
	}
	ep := provider.Endpoint{Host: host, Port: port}

	if prober, ok := p.(provider.Prober); ok && m.probe {
		if err := m.runProbe(ctx, prober, ep, cfg); err != nil {
			return err
		}
	}

	var url string
	if cs, ok := p.(provider.ConnectionStringer); ok {
		if url, err = cs.ConnectionString(ep, cfg); err != nil {
			return err
		}
	}

	frag, err := p.ComputePatch(ep, s, cfg)
	if err != nil {
		return err
	}

	elapsed := time.Since(began)
	m.mu.Lock()
	svc.Endpoint = ep
	svc.URL = url
	svc.ready = true
	settings.Merge(m.patch, frag)
	m.mu.Unlock()

	m.metrics.ObserveStart(kind, elapsed)
	logger.InfoCtx(ctx, "Backing service ready",
		logger.KeyImage, desc.Image,
		logger.Endpoint(ep.Host, ep.Port),
		logger.DurationMs(elapsed))
	if frag.Len() > 0 {
		logger.DebugCtx(ctx, "Computed settings patch", logger.KeySetting, frag.Keys())
	}
	return nil
}

func (m *Manager) runProbe(ctx context.Context, prober provider.Prober, ep provider.Endpoint, cfg *provider.Config) error {
	if m.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()
	}
	if err := prober.Probe(ctx, ep, cfg); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	logger.DebugCtx(ctx, "Probe succeeded")
	return nil
}

func (m *Manager) track(svc *Service) {
	m.mu.Lock()
	m.services = append(m.services, svc)
	n := len(m.services)
	m.mu.Unlock()
	m.metrics.SetActive(n)
}

// Stop terminates every tracked instance in reverse start order. Failures
// are logged, counted and reported in the results but never abort the
// teardown; the instance table is cleared regardless. Calling Stop with no
// tracked instances is a no-op.
func (m *Manager) Stop(ctx context.Context) []StopResult {
	m.mu.Lock()
	if m.state == StateIdle && len(m.services) == 0 {
		m.mu.Unlock()
		return nil
	}
	m.state = StateStopping
	services := m.services
	m.services = nil
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = StateIdle
		m.patch = settings.NewMap()
		m.mu.Unlock()
		m.metrics.SetActive(0)
	}()

	results := make([]StopResult, 0, len(services))
	for _, svc := range slices.Backward(services) {
		err := svc.instance.Stop(ctx)
		if err != nil {
			m.metrics.StopFailed(svc.Kind)
			logger.WarnCtx(ctx, "Failed to stop backing service",
				logger.KeyProvider, svc.Kind,
				logger.Err(err))
		} else {
			logger.DebugCtx(ctx, "Stopped backing service", logger.KeyProvider, svc.Kind)
		}
		results = append(results, StopResult{Kind: svc.Kind, Err: err})
	}
	return results
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the kinds of tracked instances, in start order.
func (m *Manager) Active() []provider.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.Kind, len(m.services))
	for i, svc := range m.services {
		out[i] = svc.Kind
	}
	return out
}

// Services returns the instances that became ready, in start order.
func (m *Manager) Services() []Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Service
	for _, svc := range m.services {
		if svc.ready {
			out = append(out, *svc)
		}
	}
	return out
}

// Endpoint returns where the instance of kind can be reached.
func (m *Manager) Endpoint(kind provider.Kind) (provider.Endpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range m.services {
		if svc.Kind == kind && svc.ready {
			return svc.Endpoint, true
		}
	}
	return provider.Endpoint{}, false
}

// Endpoints returns the endpoints of every ready instance.
func (m *Manager) Endpoints() map[provider.Kind]provider.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[provider.Kind]provider.Endpoint, len(m.services))
	for _, svc := range m.services {
		if svc.ready {
			out[svc.Kind] = svc.Endpoint
		}
	}
	return out
}

// Patch returns a copy of the aggregated settings patch.
func (m *Manager) Patch() *settings.Map {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patch.Clone()
}
