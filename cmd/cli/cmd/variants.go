package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"iac-pipeline/core/bundle"
	"iac-pipeline/core/types"
)

func newVariantsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the variant directories found in each bundle",
		Long: `Scan both bundles for variant directories holding .tf files and show the
resources and outputs each declares. Configured variants that are missing on
disk are flagged, as are required outputs a variant does not declare. The PaaS
scenario is applied at the bundle root, so its outputs are read from there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := bundle.NewScanner()
			w := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			missing := color.New(color.FgRed)
			warn := color.New(color.FgYellow)
			required := o.cfg.RequiredOutputs

			groups := []struct {
				group      types.Group
				root       string
				configured []string
			}{
				{types.GroupVM, o.cfg.Bundles.VM, o.cfg.Variants.VM},
				{types.GroupPaaS, o.cfg.Bundles.PaaS, o.cfg.Variants.PaaS},
			}

			for _, g := range groups {
				found, err := s.Discover(g.root)
				if err != nil {
					return err
				}
				bold.Fprintf(w, "%s bundle %s\n", g.group, g.root)

				onDisk := make(map[types.VariantName]bool, len(found))
				for _, name := range found {
					onDisk[name] = true
					def, err := s.Inspect(types.NewBundle(g.root).VariantDir(name))
					if err != nil {
						return err
					}
					outputs := "-"
					if len(def.Outputs) > 0 {
						outputs = strings.Join(def.Outputs, ", ")
					}
					fmt.Fprintf(w, "  %-20s %3d resources  outputs: %s\n", name, len(def.Resources), outputs)
					if g.group == types.GroupVM {
						if absent := undeclared(required, def.Outputs); len(absent) > 0 {
							warn.Fprintf(w, "  %-20s missing required outputs: %s\n", "", strings.Join(absent, ", "))
						}
					}
				}
				for _, name := range g.configured {
					if !onDisk[types.VariantName(name)] {
						missing.Fprintf(w, "  %-20s configured but not found\n", name)
					}
				}
			}

			declared, err := s.DeclaredOutputs(o.cfg.Bundles.PaaS)
			if err != nil {
				return err
			}
			outputs := "-"
			if len(declared) > 0 {
				outputs = strings.Join(declared, ", ")
			}
			fmt.Fprintf(w, "%s scenario outputs: %s\n", types.GroupPaaS, outputs)
			if absent := undeclared(required, declared); len(absent) > 0 {
				warn.Fprintf(w, "  missing required outputs: %s\n", strings.Join(absent, ", "))
			}
			return nil
		},
	}
}

// undeclared returns the required outputs missing from declared
func undeclared(required, declared []string) []string {
	have := make(map[string]bool, len(declared))
	for _, d := range declared {
		have[d] = true
	}
	var out []string
	for _, r := range required {
		if !have[r] {
			out = append(out, r)
		}
	}
	return out
}
