// Package providertest provides an in-memory provider for tests.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
)

// Fake implements provider.Provider from canned responses keyed by directory
type Fake struct {
	mu sync.Mutex

	// Plans is keyed by variant directory (bundle.VariantDir(variant))
	Plans    map[string]*provider.PlanResult
	PlanErrs map[string]error

	// Aggregates is keyed by bundle root
	Aggregates   map[string]*provider.PriceResult
	AggregateErr error

	// ApplyResults is keyed by target directory
	ApplyResults map[string]*provider.ApplyResult
	ApplyErr     error

	// BeforePlan runs before each plan and may block or fail
	BeforePlan func(ctx context.Context, dir string) error

	planCalls      []string
	aggregateCalls []string
	applyCalls     []string
}

// New creates an empty fake
func New() *Fake {
	return &Fake{
		Plans:        make(map[string]*provider.PlanResult),
		PlanErrs:     make(map[string]error),
		Aggregates:   make(map[string]*provider.PriceResult),
		ApplyResults: make(map[string]*provider.ApplyResult),
	}
}

// Plan builds a plan result from a cost literal and a resource_changes JSON literal
func Plan(cost string, changes string) *provider.PlanResult {
	return &provider.PlanResult{
		ResourceChanges: json.RawMessage(changes),
		MonthlyCost:     Cost(cost),
	}
}

// Cost parses a cost literal; "" means the cost is absent
func Cost(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// SetPlan registers the plan for one variant
func (f *Fake) SetPlan(bundle types.Bundle, variant types.VariantName, result *provider.PlanResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Plans[bundle.VariantDir(variant)] = result
}

// SetAggregate registers the aggregate price of a bundle
func (f *Fake) SetAggregate(bundle types.Bundle, cost string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Aggregates[bundle.Root] = &provider.PriceResult{MonthlyCost: Cost(cost)}
}

// SetOutputs registers apply outputs for a target
func (f *Fake) SetOutputs(bundle types.Bundle, target provider.Target, outputs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ApplyResults[target.Dir(bundle)] = &provider.ApplyResult{Outputs: outputs}
}

// PlanAndPrice implements provider.PlanAndPriceProvider
func (f *Fake) PlanAndPrice(ctx context.Context, bundle types.Bundle, variant types.VariantName) (*provider.PlanResult, error) {
	dir := bundle.VariantDir(variant)

	f.mu.Lock()
	f.planCalls = append(f.planCalls, dir)
	hook := f.BeforePlan
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, dir); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.PlanErrs[dir]; ok {
		return nil, err
	}
	res, ok := f.Plans[dir]
	if !ok {
		return nil, fmt.Errorf("no plan registered for %s", dir)
	}
	return res, nil
}

// AggregatePrice implements provider.PlanAndPriceProvider
func (f *Fake) AggregatePrice(ctx context.Context, bundle types.Bundle, configFile string) (*provider.PriceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregateCalls = append(f.aggregateCalls, filepath.Join(bundle.Root, configFile))
	if f.AggregateErr != nil {
		return nil, f.AggregateErr
	}
	res, ok := f.Aggregates[bundle.Root]
	if !ok {
		return nil, fmt.Errorf("no aggregate registered for %s", bundle.Root)
	}
	return res, nil
}

// Apply implements provider.ApplyProvider
func (f *Fake) Apply(ctx context.Context, bundle types.Bundle, target provider.Target) (*provider.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := target.Dir(bundle)
	f.applyCalls = append(f.applyCalls, dir)
	if f.ApplyErr != nil {
		return nil, f.ApplyErr
	}
	if res, ok := f.ApplyResults[dir]; ok {
		return res, nil
	}
	return &provider.ApplyResult{}, nil
}

// PlanCalls returns the directories planned so far
func (f *Fake) PlanCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.planCalls...)
}

// AggregateCalls returns the aggregate config paths priced so far
func (f *Fake) AggregateCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aggregateCalls...)
}

// ApplyCalls returns the directories applied so far
func (f *Fake) ApplyCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applyCalls...)
}

var _ provider.Provider = (*Fake)(nil)
