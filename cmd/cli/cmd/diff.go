package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"iac-pipeline/core/catalog"
	"iac-pipeline/core/diff"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

func newDiffCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "diff <old costs.json> <new costs.json>",
		Short: "Compare two cost catalogs",
		Long: `Compare two persisted cost catalogs variant by variant and show what was
added, removed or repriced, including the PaaS aggregate.

Examples:
  iac-pipeline diff main/costs.json costs.json
  iac-pipeline diff --threshold 0.50 old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := readCatalog(args[0])
			if err != nil {
				return err
			}
			after, err := readCatalog(args[1])
			if err != nil {
				return err
			}

			result := diff.NewDiffer(decimal.NewFromFloat(threshold)).Diff(before, after)
			fmt.Fprint(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "ignore per-variant changes up to this many EUR")
	return cmd
}

func readCatalog(path string) (*types.CostCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("catalog", path)
		}
		return nil, errors.Wrap(errors.TypeInput, "failed to read "+path, err)
	}
	c, err := catalog.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "invalid catalog %s", path)
	}
	return c, nil
}
