package commands

import (
	"fmt"

	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available providers",
	Long: `List the providers ephemera can start, in selection order, with their
default image and container port.

Examples:
  # Show as a table
  ephemera providers

  # Show as JSON
  ephemera providers -o json`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func runProviders(cmd *cobra.Command, args []string) error {
	p, err := printer(cmd)
	if err != nil {
		return err
	}
	list, err := listProviders(provider.DefaultRegistry())
	if err != nil {
		return err
	}
	return p.Print(list)
}

func listProviders(reg *provider.Registry) (ProviderList, error) {
	list := make(ProviderList, 0, reg.Len())
	for _, p := range reg.Providers() {
		desc, err := p.BuildInstance(p.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		list = append(list, ProviderInfo{
			Kind:  p.Name(),
			Image: desc.Image,
			Port:  string(desc.Port),
		})
	}
	return list, nil
}
