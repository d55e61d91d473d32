package commands

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/marmos91/ephemera/pkg/manager"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/resolver"
	"github.com/marmos91/ephemera/pkg/settings"
)

// ProviderInfo describes a registered provider and its defaults.
type ProviderInfo struct {
	Kind  provider.Kind `json:"kind" yaml:"kind"`
	Image string        `json:"image" yaml:"image"`
	Port  string        `json:"port" yaml:"port"`
}

// ProviderList is the result of the providers command.
type ProviderList []ProviderInfo

func (l ProviderList) Headers() []string {
	return []string{"Kind", "Image", "Port"}
}

func (l ProviderList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{string(p.Kind), p.Image, p.Port})
	}
	return rows
}

// PlanView is the result of the detect command.
type PlanView struct {
	Selections []resolver.Selection `json:"selections" yaml:"selections"`
	Unknown    []string             `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

func newPlanView(plan *resolver.Plan) PlanView {
	return PlanView{Selections: plan.Selections, Unknown: plan.Unknown}
}

func (v PlanView) Headers() []string {
	return []string{"Provider", "Included", "Reason"}
}

func (v PlanView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Selections))
	for _, sel := range v.Selections {
		rows = append(rows, []string{string(sel.Kind), yesNo(sel.Included), string(sel.Reason)})
	}
	return rows
}

// SessionView is the result of the up command.
type SessionView struct {
	ID        string            `json:"session_id" yaml:"session_id"`
	Services  []manager.Service `json:"services" yaml:"services"`
	Variables map[string]string `json:"env" yaml:"env"`
}

func (v SessionView) Headers() []string {
	return []string{"Provider", "Image", "Host", "Port", "URL"}
}

func (v SessionView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Services))
	for _, svc := range v.Services {
		rows = append(rows, []string{
			string(svc.Kind),
			svc.Image,
			svc.Endpoint.Host,
			strconv.Itoa(svc.Endpoint.Port),
			maskURL(svc.URL),
		})
	}
	return rows
}

func (v SessionView) Env() map[string]string {
	return v.Variables
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

const masked = "********"

// maskConfig returns a copy of cfg with credentials hidden.
func maskConfig(cfg *provider.Config) *settings.Map {
	out := cfg.Clone()
	if out.Has(provider.OptionPassword) {
		out.Set(provider.OptionPassword, masked)
	}
	if env, _, err := out.MapValue(provider.OptionEnvironment); err == nil && env != nil {
		for _, k := range env.Keys() {
			if isSecretKey(k) {
				env.Set(k, masked)
			}
		}
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToUpper(k)
	return strings.Contains(k, "PASSWORD") || strings.Contains(k, "SECRET") || strings.Contains(k, "TOKEN")
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
