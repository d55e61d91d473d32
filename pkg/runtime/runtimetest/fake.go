// Package runtimetest provides an in-memory runtime for tests that exercise
// provisioning without a container engine.
package runtimetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/runtime"
)

// Event is one call observed by the fake runtime.
type Event struct {
	Op   string
	Kind provider.Kind
}

// Fake is a runtime.Runtime that records calls and hands out sequential
// ports. Failures are injected per kind and operation.
type Fake struct {
	// Host is returned by every instance. Defaults to "localhost".
	Host string

	// BasePort is the first mapped port handed out. Defaults to 49152.
	BasePort int

	mu       sync.Mutex
	events   []Event
	failures map[Event]error
	descs    []*provider.Description
	next     int
	running  map[provider.Kind]int
}

var _ runtime.Runtime = (*Fake)(nil)

// New creates a Fake runtime.
func New() *Fake {
	return &Fake{
		Host:     "localhost",
		BasePort: 49152,
		failures: make(map[Event]error),
		running:  make(map[provider.Kind]int),
	}
}

// FailOn makes op (one of the runtime.Op constants) fail for kind with err.
func (f *Fake) FailOn(op string, kind provider.Kind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[Event{Op: op, Kind: kind}] = err
}

// Events returns the calls observed so far, in order.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// Ops returns the observed calls for one operation, in order.
func (f *Fake) Ops(op string) []provider.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Kind
	for _, e := range f.events {
		if e.Op == op {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Descriptions returns every description passed to Build.
func (f *Fake) Descriptions() []*provider.Description {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*provider.Description, len(f.descs))
	copy(out, f.descs)
	return out
}

// Running returns the number of started, not yet stopped instances.
func (f *Fake) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.running {
		n += c
	}
	return n
}

// Build records desc and returns an unstarted instance.
func (f *Fake) Build(ctx context.Context, desc *provider.Description) (runtime.Instance, error) {
	if err := f.record(runtime.OpBuild, desc.Kind); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.descs = append(f.descs, desc)
	port := f.BasePort + f.next
	f.next++

	return &instance{fake: f, kind: desc.Kind, exposed: desc.Port, port: port}, nil
}

func (f *Fake) record(op string, kind provider.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := Event{Op: op, Kind: kind}
	f.events = append(f.events, e)
	if err, ok := f.failures[e]; ok {
		return &runtime.Error{Op: op, Kind: kind, Err: err}
	}
	return nil
}

type instance struct {
	fake    *Fake
	kind    provider.Kind
	exposed nat.Port
	port    int
	started bool
}

func (i *instance) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &runtime.Error{Op: runtime.OpStart, Kind: i.kind, Err: err}
	}
	if err := i.fake.record(runtime.OpStart, i.kind); err != nil {
		return err
	}
	i.started = true
	i.fake.mu.Lock()
	i.fake.running[i.kind]++
	i.fake.mu.Unlock()
	return nil
}

func (i *instance) Host(ctx context.Context) (string, error) {
	if err := i.fake.record(runtime.OpInspect, i.kind); err != nil {
		return "", err
	}
	return i.fake.Host, nil
}

func (i *instance) MappedPort(ctx context.Context, port nat.Port) (int, error) {
	if port != i.exposed {
		return 0, &runtime.Error{Op: runtime.OpInspect, Kind: i.kind, Err: fmt.Errorf("port %s is not exposed", port)}
	}
	return i.port, nil
}

func (i *instance) Stop(ctx context.Context) error {
	if err := i.fake.record(runtime.OpStop, i.kind); err != nil {
		return err
	}
	if i.started {
		i.started = false
		i.fake.mu.Lock()
		i.fake.running[i.kind]--
		i.fake.mu.Unlock()
	}
	return nil
}
