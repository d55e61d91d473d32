package commands

import (
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/resolver"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [KIND...]",
	Short: "Show resolved provider configuration",
	Long: `Show the configuration each provider would start with: its defaults
layered with the settings block and any --set overrides. Passwords are
masked.

Without arguments the providers the settings need are shown.

Examples:
  # Resolved config of every needed provider
  ephemera resolve

  # A single provider with an override
  ephemera resolve postgres --set postgres.image=postgres:15`,
	RunE: runResolve,
}

func init() {
	addSettingsFlags(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, s, ov, err := loadInputs()
	if err != nil {
		return err
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	r := resolver.New(provider.DefaultRegistry(),
		resolver.WithSectionKey(cfg.Session.SectionKey),
		resolver.WithOverrides(ov))

	kinds := make([]provider.Kind, 0, len(args))
	for _, a := range args {
		kinds = append(kinds, provider.Kind(a))
	}
	if len(kinds) == 0 {
		if kinds, err = r.SelectNeeded(s); err != nil {
			return err
		}
	}

	out := settings.NewMap()
	for _, kind := range kinds {
		resolved, err := r.Resolve(kind, s)
		if err != nil {
			return err
		}
		out.Set(string(kind), maskConfig(resolved))
	}
	return p.Print(out)
}
