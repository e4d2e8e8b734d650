// Package cost evaluates the monthly cost of infrastructure variants and
// assembles the catalog the selector chooses from.
package cost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"iac-pipeline/core/normalize"
	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// RoundCost rounds to types.CostPlaces fraction digits, half away from zero
// (10.005 -> 10.01, 10.004 -> 10.00). Costs are never negative, so this is
// plain round-half-up.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(types.CostPlaces)
}

// Evaluator prices one variant of a bundle
type Evaluator struct {
	provider   provider.PlanAndPriceProvider
	normalizer *normalize.Normalizer
}

// NewEvaluator creates an evaluator. A nil normalizer uses the built-in registry.
func NewEvaluator(p provider.PlanAndPriceProvider, n *normalize.Normalizer) *Evaluator {
	if n == nil {
		n = normalize.New(nil)
	}
	return &Evaluator{provider: p, normalizer: n}
}

// Evaluate plans and prices variant within bundle. The returned record is
// named after variant; callers namespace it.
func (e *Evaluator) Evaluate(ctx context.Context, bundle types.Bundle, variant types.VariantName) (types.VariantCost, error) {
	log := logging.Named("evaluate").With(zap.String("variant", variant.String()), zap.String("bundle", bundle.Root))
	log.Debug("planning variant")

	result, err := e.provider.PlanAndPrice(ctx, bundle, variant)
	if err != nil {
		return types.VariantCost{}, errors.Provider("plan and price failed", err).
			WithContext("variant", variant.String())
	}
	if result == nil {
		return types.VariantCost{}, errors.Provider("provider returned no result", nil).
			WithContext("variant", variant.String())
	}

	if !result.MonthlyCost.Valid {
		return types.VariantCost{}, errors.Provider("provider response has no monthly cost", nil).
			WithContext("variant", variant.String())
	}
	if result.MonthlyCost.Decimal.IsNegative() {
		return types.VariantCost{}, errors.Newf(errors.TypeProvider, "provider reported negative monthly cost %s", result.MonthlyCost.Decimal).
			WithContext("variant", variant.String())
	}

	raws, err := DecodeChangeSet(result.ResourceChanges)
	if err != nil {
		return types.VariantCost{}, errors.MalformedPlan("change-set is not a sequence of resource changes", err).
			WithContext("variant", variant.String())
	}

	vc := types.VariantCost{
		Name:        variant,
		MonthlyCost: RoundCost(result.MonthlyCost.Decimal),
		Resources:   e.normalizer.NormalizeAll(raws),
	}

	log.Info("variant priced",
		zap.String("monthly_cost", vc.MonthlyCost.StringFixed(types.CostPlaces)),
		zap.Int("resources", len(vc.Resources)))

	return vc, nil
}

// DecodeChangeSet parses a raw resource_changes array. An absent or null
// change-set is an empty plan; anything other than an array of objects fails.
func DecodeChangeSet(raw json.RawMessage) ([]normalize.RawChange, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []normalize.RawChange{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("expected an array: %w", err)
	}

	out := make([]normalize.RawChange, 0, len(entries))
	for i, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || entry[0] != '{' {
			return nil, fmt.Errorf("entry %d is not an object", i)
		}
		var rc normalize.RawChange
		dec := json.NewDecoder(bytes.NewReader(entry))
		dec.UseNumber()
		if err := dec.Decode(&rc); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, rc)
	}
	return out, nil
}
