// Package session ties provisioning to a test run: it starts the backing
// services a settings tree needs, patches the settings to point at them,
// and undoes both when the run ends.
//
// Typical use from a TestMain:
//
//	func TestMain(m *testing.M) {
//		s, err := settings.Load("settings.yaml")
//		if err != nil {
//			log.Fatal(err)
//		}
//		os.Exit(session.Run(m, s, session.Options{ExportEnv: true}))
//	}
package session

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/config"
	"github.com/marmos91/ephemera/pkg/manager"
	"github.com/marmos91/ephemera/pkg/metrics"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/resolver"
	"github.com/marmos91/ephemera/pkg/runtime"
	"github.com/marmos91/ephemera/pkg/settings"
)

// Options configures a session. The zero value starts containers through
// testcontainers with default limits.
type Options struct {
	// Runtime starts the instances. Nil uses testcontainers.
	Runtime runtime.Runtime

	// Registry lists the available providers. Nil uses the built-in ones.
	Registry *provider.Registry

	// SectionKey is the settings key holding provider blocks.
	SectionKey string

	// Overrides are per-run provider blocks taking precedence over the
	// declared ones.
	Overrides map[provider.Kind]*settings.Map

	// Metrics receives lifecycle metrics. Nil disables them.
	Metrics *metrics.Metrics

	// Probe checks instances with a real client before use.
	Probe        bool
	ProbeTimeout time.Duration

	// StartupTimeout and StopTimeout bound the default runtime.
	StartupTimeout time.Duration
	StopTimeout    time.Duration

	// Labels are attached to containers created by the default runtime.
	Labels map[string]string

	// EnvPrefix prefixes the variables returned by Env. Default: EPHEMERA.
	EnvPrefix string

	// ExportEnv makes Run export Env into the process environment for the
	// duration of the run.
	ExportEnv bool
}

// OptionsFromConfig derives session options from the tool configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SectionKey:     cfg.Session.SectionKey,
		Probe:          cfg.Session.Probe,
		ProbeTimeout:   cfg.Session.ProbeTimeout,
		StartupTimeout: cfg.Runtime.StartupTimeout,
		StopTimeout:    cfg.Runtime.StopTimeout,
		Labels:         maps.Clone(cfg.Runtime.Labels),
		EnvPrefix:      cfg.Session.EnvPrefix,
	}
}

// Session is one provisioning lifecycle bound to a settings tree.
type Session struct {
	id        string
	settings  *settings.Settings
	manager   *manager.Manager
	applier   *settings.Applier
	envPrefix string
	logCtx    *logger.LogContext

	mu    sync.Mutex
	ended bool
}

// Start provisions every service s needs and patches s in place.
//
// The returned session is never nil, even on error, so that End can release
// whatever was started and restore whatever was patched.
func Start(ctx context.Context, s *settings.Settings, opts Options) (*Session, error) {
	id := uuid.NewString()
	lc := logger.NewLogContext(id)
	ctx = logger.WithContext(ctx, lc)

	rt := opts.Runtime
	if rt == nil {
		rt = runtime.NewTestcontainers(runtime.Options{
			StartupTimeout: opts.StartupTimeout,
			StopTimeout:    opts.StopTimeout,
			Labels:         opts.Labels,
			SessionID:      id,
		})
	}

	mopts := []manager.Option{
		manager.WithMetrics(opts.Metrics),
		manager.WithResolverOptions(
			resolver.WithSectionKey(opts.SectionKey),
			resolver.WithOverrides(opts.Overrides),
		),
	}
	if opts.Registry != nil {
		mopts = append(mopts, manager.WithRegistry(opts.Registry))
	}
	if opts.Probe {
		mopts = append(mopts, manager.WithProbe(opts.ProbeTimeout))
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = config.DefaultEnvPrefix
	}

	sess := &Session{
		id:        id,
		settings:  s,
		manager:   manager.New(rt, mopts...),
		applier:   settings.NewApplier(),
		envPrefix: prefix,
		logCtx:    lc,
	}

	patch, err := sess.manager.Start(ctx, s)
	if err != nil {
		logger.ErrorCtx(ctx, "Session start failed", logger.Err(err))
		return sess, fmt.Errorf("session %s: %w", id, err)
	}
	if err := sess.applier.Apply(s, patch); err != nil {
		return sess, fmt.Errorf("session %s: apply settings patch: %w", id, err)
	}

	logger.InfoCtx(ctx, "Session ready",
		logger.KeyCount, len(sess.manager.Services()),
		logger.KeySetting, sess.applier.Touched(),
		logger.KeyDurationMs, lc.DurationMs())
	return sess, nil
}

// ID returns the session identifier, also used as container label.
func (s *Session) ID() string {
	return s.id
}

// Settings returns the settings tree the session patches.
func (s *Session) Settings() *settings.Settings {
	return s.settings
}

// Manager returns the lifecycle manager of the session.
func (s *Session) Manager() *manager.Manager {
	return s.manager
}

// Patch returns a copy of the aggregated settings patch.
func (s *Session) Patch() *settings.Map {
	return s.manager.Patch()
}

// Services returns the ready services in start order.
func (s *Session) Services() []manager.Service {
	return s.manager.Services()
}

// Endpoints returns where each ready service listens.
func (s *Session) Endpoints() map[provider.Kind]provider.Endpoint {
	return s.manager.Endpoints()
}

// EnvPrefix returns the prefix Env uses by default.
func (s *Session) EnvPrefix() string {
	return s.envPrefix
}

// Env returns connection variables for every ready service:
// <PREFIX>_<KIND>_HOST, <PREFIX>_<KIND>_PORT and, when known,
// <PREFIX>_<KIND>_URL. An empty prefix uses the session's prefix.
func (s *Session) Env(prefix string) map[string]string {
	if prefix == "" {
		prefix = s.envPrefix
	}
	env := make(map[string]string)
	for _, svc := range s.manager.Services() {
		base := prefix + "_" + strings.ToUpper(string(svc.Kind))
		env[base+"_HOST"] = svc.Endpoint.Host
		env[base+"_PORT"] = strconv.Itoa(svc.Endpoint.Port)
		if svc.URL != "" {
			env[base+"_URL"] = svc.URL
		}
	}
	return env
}

// End restores the settings and stops every instance. Stop failures are
// reported in the results, never returned as an error. Calling End more
// than once is a no-op.
func (s *Session) End(ctx context.Context) []manager.StopResult {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	s.mu.Unlock()

	ctx = logger.WithContext(ctx, s.logCtx)
	restored := s.applier.Touched()
	s.applier.Restore(s.settings)
	results := s.manager.Stop(ctx)

	failed := slices.IndexFunc(results, func(r manager.StopResult) bool { return r.Err != nil }) >= 0
	logger.InfoCtx(ctx, "Session ended",
		logger.KeySetting, restored,
		logger.KeyCount, len(results),
		"clean", !failed)
	return results
}

// M is the part of *testing.M that Run needs.
type M interface {
	Run() int
}

// Run starts a session over s, runs m and ends the session on every exit
// path, including panics. It returns the exit code for os.Exit: m's code,
// or 1 when the session could not start.
func Run(m M, s *settings.Settings, opts Options) int {
	ctx := context.Background()

	sess, err := Start(ctx, s, opts)
	defer sess.End(context.WithoutCancel(ctx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ephemera: %v\n", err)
		return 1
	}

	if opts.ExportEnv {
		restore := exportEnv(sess.Env(""))
		defer restore()
	}

	return m.Run()
}

// exportEnv sets env in the process environment and returns a function
// restoring the previous values.
func exportEnv(env map[string]string) func() {
	type prev struct {
		value string
		set   bool
	}
	saved := make(map[string]prev, len(env))
	for k, v := range env {
		old, ok := os.LookupEnv(k)
		saved[k] = prev{value: old, set: ok}
		_ = os.Setenv(k, v)
	}
	return func() {
		for k, p := range saved {
			if p.set {
				_ = os.Setenv(k, p.value)
			} else {
				_ = os.Unsetenv(k)
			}
		}
	}
}
