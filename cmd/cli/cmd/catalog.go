package cmd

import (
	"github.com/spf13/cobra"

	"iac-pipeline/core/output"
)

func newCatalogCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Plan and price every variant and write costs.json",
		Long: `Plan and price every VM and PaaS variant in parallel, price the PaaS
bundle as one scenario, and persist the result as costs.json.

Any failing variant aborts the build and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, cleanup, err := buildPipeline(ctx, o.cfg, cmd.ErrOrStderr())
			defer cleanup()
			if err != nil {
				return err
			}

			c, err := pl.Catalog(ctx)
			if err != nil {
				return err
			}
			return o.render(cmd, &output.Report{Catalog: c})
		},
	}
}
