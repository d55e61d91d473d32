// Package runtime is the container runtime capability ephemera drives: build
// an instance from a provider description, start it, ask where it listens,
// and stop it. The production implementation is backed by testcontainers-go;
// runtimetest provides an in-memory fake.
package runtime

import (
	"context"
	"fmt"

	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/pkg/provider"
)

// Operations reported in Error.Op.
const (
	OpBuild   = "build"
	OpStart   = "start"
	OpInspect = "inspect"
	OpStop    = "stop"
)

// Runtime creates instances from descriptions.
type Runtime interface {
	Build(ctx context.Context, desc *provider.Description) (Instance, error)
}

// Instance is a handle to one service container.
//
// Start blocks until the description's wait strategy is satisfied or the
// runtime's startup deadline expires. Stop terminates and removes the
// container.
type Instance interface {
	Start(ctx context.Context) error
	Host(ctx context.Context) (string, error)
	MappedPort(ctx context.Context, port nat.Port) (int, error)
	Stop(ctx context.Context) error
}

// Error is a failure reported by the container runtime.
type Error struct {
	Op   string
	Kind provider.Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("runtime: %s %s container: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
