package tofu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/logging"
)

const (
	planFile     = "plan.tfplan"
	planJSONFile = "plan.json"
)

// Config configures the exec provider
type Config struct {
	// TofuPath is the tofu executable path
	TofuPath string `json:"tofu_path"`

	// InfracostPath is the infracost executable path
	InfracostPath string `json:"infracost_path"`

	// Timeout bounds each command
	Timeout time.Duration `json:"timeout"`

	// NoColor disables color output
	NoColor bool `json:"no_color"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TofuPath:      "tofu",
		InfracostPath: "infracost",
		Timeout:       30 * time.Minute,
		NoColor:       true,
	}
}

// Provider plans, prices and applies by shelling out to tofu and infracost
type Provider struct {
	config *Config
	runner Runner
}

// New creates an exec provider. A nil runner executes real commands.
func New(config *Config, runner Runner) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if runner == nil {
		runner = &ExecRunner{Timeout: config.Timeout}
	}
	return &Provider{config: config, runner: runner}
}

// PlanAndPrice runs init, plan and show in the variant directory, then prices the plan
func (p *Provider) PlanAndPrice(ctx context.Context, bundle types.Bundle, variant types.VariantName) (*provider.PlanResult, error) {
	dir := bundle.VariantDir(variant)
	log := logging.Named("tofu").With(zap.String("dir", dir))

	if err := p.init(ctx, dir); err != nil {
		return nil, err
	}
	if _, err := p.tofu(ctx, dir, "plan", "-input=false", "-out="+planFile); err != nil {
		return nil, err
	}
	planJSON, err := p.tofu(ctx, dir, "show", "-json", planFile)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, planJSONFile), planJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", planJSONFile, err)
	}

	changes, err := ParsePlan(planJSON)
	if err != nil {
		return nil, err
	}

	costJSON, err := p.infracost(ctx, dir, "breakdown", "--path", planJSONFile, "--format", "json")
	if err != nil {
		return nil, err
	}
	cost, err := ParseBreakdown(costJSON)
	if err != nil {
		return nil, err
	}

	log.Debug("variant planned", zap.Bool("priced", cost.Valid))
	return &provider.PlanResult{ResourceChanges: changes, MonthlyCost: cost}, nil
}

// AggregatePrice prices the whole bundle with a combined infracost config file
func (p *Provider) AggregatePrice(ctx context.Context, bundle types.Bundle, configFile string) (*provider.PriceResult, error) {
	costJSON, err := p.infracost(ctx, bundle.Root, "breakdown", "--config-file", configFile, "--format", "json")
	if err != nil {
		return nil, err
	}
	cost, err := ParseBreakdown(costJSON)
	if err != nil {
		return nil, err
	}
	return &provider.PriceResult{MonthlyCost: cost}, nil
}

// Apply provisions the target and reads back its outputs
func (p *Provider) Apply(ctx context.Context, bundle types.Bundle, target provider.Target) (*provider.ApplyResult, error) {
	dir := target.Dir(bundle)

	if err := p.init(ctx, dir); err != nil {
		return nil, err
	}
	if _, err := p.tofu(ctx, dir, "apply", "-auto-approve", "-input=false"); err != nil {
		return nil, err
	}
	data, err := p.tofu(ctx, dir, "output", "-json")
	if err != nil {
		return nil, err
	}
	outputs, err := ParseOutputs(data)
	if err != nil {
		return nil, err
	}

	logging.Named("tofu").Info("applied", zap.String("dir", dir), zap.Int("outputs", len(outputs)))
	return &provider.ApplyResult{Outputs: outputs}, nil
}

func (p *Provider) init(ctx context.Context, dir string) error {
	_, err := p.tofu(ctx, dir, "init", "-input=false")
	return err
}

func (p *Provider) tofu(ctx context.Context, dir string, args ...string) ([]byte, error) {
	// tofu stops parsing flags at the first positional argument
	if p.config.NoColor && len(args) > 0 {
		args = append([]string{args[0], "-no-color"}, args[1:]...)
	}
	return p.runner.Run(ctx, dir, p.config.TofuPath, args...)
}

func (p *Provider) infracost(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if p.config.NoColor {
		args = append(args, "--no-color")
	}
	return p.runner.Run(ctx, dir, p.config.InfracostPath, args...)
}

var _ provider.Provider = (*Provider)(nil)
