package cmd

import (
	"github.com/spf13/cobra"

	"iac-pipeline/internal/errors"
)

func newSelectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Choose a scenario from costs.json and write decision.json",
		Long: `Read the persisted cost catalog, pick the cheapest VM variant or the
PaaS aggregate if it is strictly cheaper, and check the result against the
budget. Nothing is provisioned. Exits non-zero when over budget.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pl, cleanup, err := buildPipeline(ctx, o.cfg, nil)
			defer cleanup()
			if err != nil {
				return err
			}

			report, err := pl.Select(ctx)
			if rerr := o.render(cmd, report); rerr != nil && err == nil {
				err = rerr
			}
			if err != nil {
				return err
			}
			if !report.Decision.WithinBudget {
				return errors.BudgetExceeded("no scenario fits the budget").
					WithContext("chosen_cost", report.Decision.ChosenCost.String())
			}
			return nil
		},
	}
}
