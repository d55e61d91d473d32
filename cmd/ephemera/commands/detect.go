package commands

import (
	"strings"

	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/resolver"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show which providers a settings file needs",
	Long: `Show the selection decision for every provider without starting anything.

A provider is included when its block sets enabled: true, skipped when it
sets enabled: false or auto: false, and otherwise included when the settings
reference it (for example a postgresql DATABASES engine) or declare a block
for it.

Examples:
  # Inspect settings.yaml in the current directory
  ephemera detect

  # Another settings file, printed as YAML
  ephemera detect --settings app/settings.json -o yaml`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	addSettingsFlags(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
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
	plan, err := r.Plan(s)
	if err != nil {
		return err
	}

	if err := p.Print(newPlanView(plan)); err != nil {
		return err
	}
	if len(plan.Unknown) > 0 {
		p.Warning("\nUnknown providers in " + r.SectionKey() + ": " + strings.Join(plan.Unknown, ", "))
	}
	return nil
}
