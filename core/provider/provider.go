// Package provider defines the two external collaborators the pipeline drives:
// a planner that prices a variant without applying it, and an applier that
// provisions the chosen target. Implementations live under adapters/.
package provider

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/types"
)

// PlanResult is the raw output of planning and pricing one variant
type PlanResult struct {
	// ResourceChanges is the change-set as reported by the planner.
	// It is kept raw so shape errors surface in the evaluator.
	ResourceChanges json.RawMessage

	// MonthlyCost is invalid when the pricer reported no cost at all
	MonthlyCost decimal.NullDecimal
}

// PriceResult is the output of a whole-bundle price query
type PriceResult struct {
	MonthlyCost decimal.NullDecimal
}

// PlanAndPriceProvider plans and prices infrastructure without applying it
type PlanAndPriceProvider interface {
	// PlanAndPrice plans one variant directory of bundle and prices the plan
	PlanAndPrice(ctx context.Context, bundle types.Bundle, variant types.VariantName) (*PlanResult, error)

	// AggregatePrice prices bundle as one scenario using a combined cost config
	AggregatePrice(ctx context.Context, bundle types.Bundle, configFile string) (*PriceResult, error)
}

// Target names what an apply acts on: one variant or the whole scenario
type Target struct {
	Variant       types.VariantName
	WholeScenario bool
}

// VariantTarget targets one variant directory
func VariantTarget(name types.VariantName) Target {
	return Target{Variant: name}
}

// ScenarioTarget targets the whole bundle
func ScenarioTarget() Target {
	return Target{WholeScenario: true}
}

// String returns the variant name or the whole-scenario marker
func (t Target) String() string {
	if t.WholeScenario {
		return "<whole-scenario>"
	}
	return string(t.Variant)
}

// Dir resolves the directory an apply runs in
func (t Target) Dir(bundle types.Bundle) string {
	if t.WholeScenario {
		return bundle.Root
	}
	return bundle.VariantDir(t.Variant)
}

// ApplyResult carries the outputs reported after provisioning
type ApplyResult struct {
	Outputs map[string]string
}

// ApplyProvider provisions infrastructure
type ApplyProvider interface {
	Apply(ctx context.Context, bundle types.Bundle, target Target) (*ApplyResult, error)
}

// Provider is a collaborator offering both capabilities
type Provider interface {
	PlanAndPriceProvider
	ApplyProvider
}
