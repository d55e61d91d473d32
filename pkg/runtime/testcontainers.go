package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Label keys attached to every container ephemera creates.
const (
	LabelManaged  = "dev.ephemera.managed"
	LabelProvider = "dev.ephemera.provider"
	LabelSession  = "dev.ephemera.session"
)

// Options configures the testcontainers-backed runtime.
type Options struct {
	// StartupTimeout bounds the wait strategy of every instance.
	// Zero leaves the strategy's own deadline in place.
	StartupTimeout time.Duration

	// StopTimeout bounds container termination. Zero means no extra bound.
	StopTimeout time.Duration

	// Labels are added to every container.
	Labels map[string]string

	// SessionID is recorded in the LabelSession label.
	SessionID string
}

// Testcontainers runs instances through testcontainers-go.
// Ryuk (the testcontainers reaper) removes containers that outlive the process.
type Testcontainers struct {
	opts Options
}

var _ Runtime = (*Testcontainers)(nil)

// NewTestcontainers creates a testcontainers-backed runtime.
func NewTestcontainers(opts Options) *Testcontainers {
	return &Testcontainers{opts: opts}
}

// Build creates (but does not start) a container for desc.
func (r *Testcontainers) Build(ctx context.Context, desc *provider.Description) (Instance, error) {
	if desc == nil {
		return nil, &Error{Op: OpBuild, Err: errors.New("nil description")}
	}

	req, err := r.request(desc)
	if err != nil {
		return nil, &Error{Op: OpBuild, Kind: desc.Kind, Err: err}
	}

	logger.DebugCtx(ctx, "Creating container",
		logger.KeyProvider, desc.Kind,
		logger.KeyImage, desc.Image,
		logger.KeyPort, string(desc.Port))

	ctr, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		if ctr != nil {
			_ = ctr.Terminate(context.WithoutCancel(ctx))
		}
		return nil, &Error{Op: OpBuild, Kind: desc.Kind, Err: err}
	}

	return &tcInstance{kind: desc.Kind, ctr: ctr, stopTimeout: r.opts.StopTimeout}, nil
}

// request translates a description into a testcontainers request: base
// fields, then module customizers, then the description's own environment.
func (r *Testcontainers) request(desc *provider.Description) (testcontainers.GenericContainerRequest, error) {
	if desc.Image == "" {
		return testcontainers.GenericContainerRequest{}, errors.New("description has no image")
	}

	labels := map[string]string{
		LabelManaged:  "true",
		LabelProvider: string(desc.Kind),
	}
	if r.opts.SessionID != "" {
		labels[LabelSession] = r.opts.SessionID
	}
	maps.Copy(labels, r.opts.Labels)

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      desc.Image,
			Env:        make(map[string]string),
			Cmd:        desc.Cmd,
			Labels:     labels,
			WaitingFor: desc.WaitingFor,
		},
		Started: false,
	}
	if desc.Port != "" {
		req.ExposedPorts = []string{string(desc.Port)}
	}

	for _, c := range desc.Customizers {
		if err := c.Customize(&req); err != nil {
			return req, fmt.Errorf("customize request: %w", err)
		}
	}
	maps.Copy(req.Env, desc.Env)

	if r.opts.StartupTimeout > 0 && req.WaitingFor != nil {
		req.WaitingFor = wait.ForAll(req.WaitingFor).WithDeadline(r.opts.StartupTimeout)
	}

	return req, nil
}

type tcInstance struct {
	kind        provider.Kind
	ctr         testcontainers.Container
	stopTimeout time.Duration
}

func (i *tcInstance) Start(ctx context.Context) error {
	if err := i.ctr.Start(ctx); err != nil {
		return &Error{Op: OpStart, Kind: i.kind, Err: err}
	}
	return nil
}

func (i *tcInstance) Host(ctx context.Context) (string, error) {
	host, err := i.ctr.Host(ctx)
	if err != nil {
		return "", &Error{Op: OpInspect, Kind: i.kind, Err: fmt.Errorf("host: %w", err)}
	}
	return host, nil
}

func (i *tcInstance) MappedPort(ctx context.Context, port nat.Port) (int, error) {
	mapped, err := i.ctr.MappedPort(ctx, port)
	if err != nil {
		return 0, &Error{Op: OpInspect, Kind: i.kind, Err: fmt.Errorf("mapped port %s: %w", port, err)}
	}
	return mapped.Int(), nil
}

func (i *tcInstance) Stop(ctx context.Context) error {
	if i.stopTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.stopTimeout)
		defer cancel()
	}
	if err := i.ctr.Terminate(ctx); err != nil {
		return &Error{Op: OpStop, Kind: i.kind, Err: err}
	}
	return nil
}
