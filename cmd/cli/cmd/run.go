package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd(o *options) *cobra.Command {
	var deploymentID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the catalog, select and provision in one go",
		Long: `Run every stage: build and persist costs.json, then select and provision
from the persisted catalog. Equivalent to catalog followed by provision.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, cleanup, err := buildPipeline(ctx, o.cfg, cmd.ErrOrStderr())
			defer cleanup()
			if err != nil {
				return err
			}

			report, err := pl.Run(ctx, deploymentIDOrNew(deploymentID))
			if rerr := o.render(cmd, report); rerr != nil && err == nil {
				err = rerr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "correlation id recorded in deployment.json (default: generated UUID)")
	return cmd
}
