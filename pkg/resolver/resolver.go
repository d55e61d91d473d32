// Package resolver decides which providers a settings tree needs and what
// configuration each of them runs with.
//
// Provider blocks live under a single declarative section of the settings
// (TESTCONTAINERS by default), keyed by provider kind:
//
//	TESTCONTAINERS:
//	  postgres: {image: "postgres:15", dbname: shop}
//	  redis:    {enabled: true}
//	  mysql:    {auto: false}
//
// For every provider, in registry order:
//
//  1. a block with `enabled` includes the provider iff it is true;
//  2. otherwise a block with `auto: false` skips the provider;
//  3. otherwise the provider is included when it detects a need for itself
//     or when it has a block at all, since a declared block defaults to
//     enabled.
//
// The resolved configuration of a provider is its defaults overlaid with its
// block, minus the control keys `enabled` and `auto`.
package resolver

import (
	"fmt"
	"slices"

	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/settings"
)

// Reason explains a selection decision.
type Reason string

const (
	ReasonEnabled      Reason = "enabled"
	ReasonDisabled     Reason = "disabled"
	ReasonAutoDisabled Reason = "auto-disabled"
	ReasonDetected     Reason = "detected"
	ReasonDeclared     Reason = "declared"
	ReasonNotNeeded    Reason = "not-needed"
)

// Selection is the decision taken for one provider.
type Selection struct {
	Kind     provider.Kind `json:"kind" yaml:"kind"`
	Included bool          `json:"included" yaml:"included"`
	Reason   Reason        `json:"reason" yaml:"reason"`
}

// Plan is the outcome of selection over a whole registry.
type Plan struct {
	// Selections holds one entry per registered provider, in registry order.
	Selections []Selection `json:"selections" yaml:"selections"`

	// Unknown lists declared section keys that name no registered provider,
	// in declared order.
	Unknown []string `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

// Included returns the included kinds in registry order.
func (p *Plan) Included() []provider.Kind {
	var out []provider.Kind
	for _, sel := range p.Selections {
		if sel.Included {
			out = append(out, sel.Kind)
		}
	}
	return out
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSectionKey changes the top-level settings key holding provider blocks.
func WithSectionKey(key string) Option {
	return func(r *Resolver) {
		if key != "" {
			r.sectionKey = key
		}
	}
}

// WithOverrides supplies per-call provider blocks. Their keys take precedence
// over the keys of the declared block of the same provider; the settings
// themselves are not modified.
func WithOverrides(overrides map[provider.Kind]*settings.Map) Option {
	return func(r *Resolver) {
		r.overrides = make(map[provider.Kind]*settings.Map, len(overrides))
		for k, m := range overrides {
			r.overrides[k] = m.Clone()
		}
	}
}

// Resolver selects providers and resolves their configuration.
type Resolver struct {
	registry   *provider.Registry
	sectionKey string
	overrides  map[provider.Kind]*settings.Map
}

// New creates a Resolver over registry.
func New(registry *provider.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:   registry,
		sectionKey: settings.DefaultSectionKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SectionKey returns the top-level settings key holding provider blocks.
func (r *Resolver) SectionKey() string {
	return r.sectionKey
}

// Registry returns the registry the resolver selects from.
func (r *Resolver) Registry() *provider.Registry {
	return r.registry
}

// Plan applies the selection rule to every registered provider.
func (r *Resolver) Plan(s *settings.Settings) (*Plan, error) {
	section, err := r.section(s)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Selections: make([]Selection, 0, r.registry.Len())}
	for _, p := range r.registry.Providers() {
		sel, err := r.decide(p, section, s)
		if err != nil {
			return nil, err
		}
		plan.Selections = append(plan.Selections, sel)
	}

	section.Range(func(key string, _ any) bool {
		if _, ok := r.registry.Lookup(key); !ok {
			plan.Unknown = append(plan.Unknown, key)
		}
		return true
	})
	if len(plan.Unknown) > 0 {
		logger.Warn("Ignoring configuration for unknown providers",
			logger.KeySection, r.sectionKey,
			logger.KeyProviders, plan.Unknown)
	}

	return plan, nil
}

// SelectNeeded returns the kinds to start, in registry order without
// duplicates.
func (r *Resolver) SelectNeeded(s *settings.Settings) ([]provider.Kind, error) {
	plan, err := r.Plan(s)
	if err != nil {
		return nil, err
	}
	return slices.Compact(plan.Included()), nil
}

func (r *Resolver) decide(p provider.Provider, section *settings.Map, s *settings.Settings) (Selection, error) {
	kind := p.Name()
	block, err := r.block(kind, section)
	if err != nil {
		return Selection{}, err
	}

	enabled, present, err := block.BoolValue(provider.OptionEnabled)
	if err != nil {
		return Selection{}, &provider.ConfigError{Kind: kind, Key: provider.OptionEnabled, Reason: "expected a bool, got " + typeOf(block, provider.OptionEnabled)}
	}
	if present {
		if enabled {
			return Selection{Kind: kind, Included: true, Reason: ReasonEnabled}, nil
		}
		return Selection{Kind: kind, Reason: ReasonDisabled}, nil
	}

	auto, present, err := block.BoolValue(provider.OptionAuto)
	if err != nil {
		return Selection{}, &provider.ConfigError{Kind: kind, Key: provider.OptionAuto, Reason: "expected a bool, got " + typeOf(block, provider.OptionAuto)}
	}
	if present && !auto {
		return Selection{Kind: kind, Reason: ReasonAutoDisabled}, nil
	}

	if p.CanAutoDetect(s) {
		return Selection{Kind: kind, Included: true, Reason: ReasonDetected}, nil
	}
	// A declared block without enabled defaults to enabled.
	if section.Has(string(kind)) {
		return Selection{Kind: kind, Included: true, Reason: ReasonDeclared}, nil
	}
	return Selection{Kind: kind, Reason: ReasonNotNeeded}, nil
}

// Resolve returns the effective configuration of kind: its defaults overlaid
// with its declared block (and any override), without control keys.
func (r *Resolver) Resolve(kind provider.Kind, s *settings.Settings) (*provider.Config, error) {
	p, err := r.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	section, err := r.section(s)
	if err != nil {
		return nil, err
	}
	block, err := r.block(kind, section)
	if err != nil {
		return nil, err
	}

	cfg := settings.Overlay(p.DefaultConfig(), block)
	cfg.Delete(provider.OptionEnabled)
	cfg.Delete(provider.OptionAuto)
	return cfg, nil
}

// section returns the declarative section, or an empty mapping when absent.
func (r *Resolver) section(s *settings.Settings) (*settings.Map, error) {
	if s == nil {
		return nil, settings.ErrNilSettings
	}
	raw, ok := s.Get(r.sectionKey)
	if !ok || raw == nil {
		return settings.NewMap(), nil
	}
	section, ok := raw.(*settings.Map)
	if !ok {
		return nil, &provider.ConfigError{Key: r.sectionKey, Reason: "expected a mapping, got " + settings.TypeName(raw)}
	}
	return section, nil
}

// block returns the declared block of kind with any override folded in.
// The result is always a fresh mapping.
func (r *Resolver) block(kind provider.Kind, section *settings.Map) (*settings.Map, error) {
	declared := settings.NewMap()
	if raw, ok := section.Get(string(kind)); ok && raw != nil {
		m, ok := raw.(*settings.Map)
		if !ok {
			return nil, &provider.ConfigError{Kind: kind, Reason: fmt.Sprintf("%s.%s: expected a mapping, got %s", r.sectionKey, kind, settings.TypeName(raw))}
		}
		declared = m
	}
	return settings.Overlay(declared, r.overrides[kind]), nil
}

func typeOf(m *settings.Map, key string) string {
	raw, _ := m.Get(key)
	return settings.TypeName(raw)
}
