package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newProvisionCmd(o *options) *cobra.Command {
	var deploymentID string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the decision derived from costs.json",
		Long: `Re-derive the decision from the persisted cost catalog and apply it:
the chosen VM variant, or the whole PaaS bundle. Writes deployment.json.

Nothing is applied when the decision is over budget; the command prints the
decision and exits non-zero. A failed apply is not retried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, cleanup, err := buildPipeline(ctx, o.cfg, nil)
			defer cleanup()
			if err != nil {
				return err
			}

			report, err := pl.Provision(ctx, deploymentIDOrNew(deploymentID))
			if rerr := o.render(cmd, report); rerr != nil && err == nil {
				err = rerr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "correlation id recorded in deployment.json (default: generated UUID)")
	return cmd
}

func deploymentIDOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
