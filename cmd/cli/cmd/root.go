// Package cmd provides the CLI commands for iac-pipeline.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"iac-pipeline/core/output"
	"iac-pipeline/internal/config"
	"iac-pipeline/internal/logging"
)

// options is the state shared by every subcommand of one root
type options struct {
	cfgFile string
	verbose bool
	format  string

	v   *viper.Viper
	cfg *config.Config
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	o := &options{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "iac-pipeline",
		Short: "Price infrastructure variants and provision the cheapest one within budget",
		Long: `iac-pipeline plans and prices every VM variant and the PaaS topology,
picks the cheapest option, and provisions it only if it fits the monthly budget.

Examples:
  iac-pipeline catalog --vm-bundle ./vm --paas-bundle ./paas
  iac-pipeline select --budget 50
  iac-pipeline provision --deployment-id release-42
  iac-pipeline run --budget 50 --format json
  iac-pipeline diff old/costs.json costs.json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (JSON or YAML)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVarP(&o.format, "format", "f", string(output.FormatCLI), "output format (cli, json, markdown)")
	flags.Float64("budget", 0, "monthly budget in EUR")
	flags.String("vm-bundle", "", "VM bundle root")
	flags.String("paas-bundle", "", "PaaS bundle root")
	flags.String("out", "", "artifact directory for the file backend")
	flags.String("provider", "", "provider kind (exec, offline)")
	flags.Int("concurrency", 0, "parallel variant evaluations")

	for key, flag := range map[string]string{
		"budget_eur":     "budget",
		"bundles.vm":     "vm-bundle",
		"bundles.paas":   "paas-bundle",
		"artifacts.path": "out",
		"provider.kind":  "provider",
		"concurrency":    "concurrency",
	} {
		_ = o.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newCatalogCmd(o),
		newSelectCmd(o),
		newProvisionCmd(o),
		newRunCmd(o),
		newVariantsCmd(o),
		newDiffCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI until ctx is cancelled
func Execute(ctx context.Context) error {
	defer logging.Sync()
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) load() error {
	if _, err := output.ForFormat(output.Format(o.format)); err != nil {
		return err
	}
	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	config.Set(cfg)
	o.cfg = cfg
	return nil
}

// render writes report in the selected format
func (o *options) render(cmd *cobra.Command, report *output.Report) error {
	if report == nil {
		return nil
	}
	f, err := output.ForFormat(output.Format(o.format))
	if err != nil {
		return err
	}
	return f.Render(cmd.OutOrStdout(), report)
}
