package tofu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
)

// Files read by the offline provider
const (
	OfflinePlanFile      = "plan.json"
	OfflineCostFile      = "cost.json"
	OfflineAggregateFile = "paas-cost.json"
	OfflineOutputsFile   = "outputs.json"
)

// OfflineProvider replays precomputed tofu/infracost JSON from the bundle tree.
// Nothing is planned or applied; it is meant for dry runs and tests.
type OfflineProvider struct{}

// NewOffline creates an offline provider
func NewOffline() *OfflineProvider {
	return &OfflineProvider{}
}

// PlanAndPrice reads plan.json and cost.json from the variant directory
func (o *OfflineProvider) PlanAndPrice(ctx context.Context, bundle types.Bundle, variant types.VariantName) (*provider.PlanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := bundle.VariantDir(variant)

	planJSON, err := os.ReadFile(filepath.Join(dir, OfflinePlanFile))
	if err != nil {
		return nil, err
	}
	changes, err := ParsePlan(planJSON)
	if err != nil {
		return nil, err
	}

	costJSON, err := os.ReadFile(filepath.Join(dir, OfflineCostFile))
	if err != nil {
		return nil, err
	}
	cost, err := ParseBreakdown(costJSON)
	if err != nil {
		return nil, err
	}
	return &provider.PlanResult{ResourceChanges: changes, MonthlyCost: cost}, nil
}

// AggregatePrice reads the aggregate breakdown at the bundle root. A config
// file named *.json is read directly; otherwise paas-cost.json is used.
func (o *OfflineProvider) AggregatePrice(ctx context.Context, bundle types.Bundle, configFile string) (*provider.PriceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := OfflineAggregateFile
	if strings.HasSuffix(configFile, ".json") {
		name = configFile
	}
	data, err := os.ReadFile(filepath.Join(bundle.Root, name))
	if err != nil {
		return nil, err
	}
	cost, err := ParseBreakdown(data)
	if err != nil {
		return nil, err
	}
	return &provider.PriceResult{MonthlyCost: cost}, nil
}

// Apply reads outputs.json from the target directory. A missing file means no outputs.
func (o *OfflineProvider) Apply(ctx context.Context, bundle types.Bundle, target provider.Target) (*provider.ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := target.Dir(bundle)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("target directory %s does not exist", dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, OfflineOutputsFile))
	if os.IsNotExist(err) {
		return &provider.ApplyResult{Outputs: map[string]string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	outputs, err := ParseOutputs(data)
	if err != nil {
		return nil, err
	}
	return &provider.ApplyResult{Outputs: outputs}, nil
}

var _ provider.Provider = (*OfflineProvider)(nil)
