// Package selector applies the selection policy to a cost catalog.
//
// The cheapest VM variant is the baseline. The separately priced PaaS
// aggregate wins only when strictly cheaper. Whatever wins must fit the
// budget, otherwise nothing is authorized.
package selector

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// Select chooses a scenario from catalog under budget. The catalog is not modified.
func Select(catalog *types.CostCatalog, budget decimal.Decimal) (types.Decision, error) {
	if catalog == nil {
		return types.Decision{}, errors.EmptyCatalog("no catalog to select from")
	}

	cheapest, ok := CheapestVM(catalog)
	if !ok {
		return types.Decision{}, errors.EmptyCatalog("catalog has no vm variants").
			WithContext("variants", catalog.Len())
	}

	paas := catalog.PaaSAggregateCost()
	d := types.Decision{
		Scenario:          types.ScenarioVM,
		ChosenVariant:     cheapest.Name,
		ChosenCost:        cheapest.MonthlyCost,
		CheapestVM:        cheapest,
		PaaSAggregateCost: paas,
		BudgetEUR:         budget,
	}

	if paas.Valid && paas.Decimal.LessThan(cheapest.MonthlyCost) {
		d.Scenario = types.ScenarioPaaS
		d.ChosenVariant = ""
		d.ChosenCost = paas.Decimal
	}

	d.WithinBudget = d.ChosenCost.LessThanOrEqual(budget)
	if !d.WithinBudget {
		d.Scenario = types.ScenarioNone
		d.ChosenVariant = ""
	}

	logging.Named("select").Info("selection complete",
		zap.String("scenario", d.Scenario.String()),
		zap.String("cheapest_vm", cheapest.Name.String()),
		zap.String("chosen_cost", d.ChosenCost.StringFixed(types.CostPlaces)),
		zap.String("budget_eur", budget.StringFixed(types.CostPlaces)),
		zap.Bool("within_budget", d.WithinBudget))

	return d, nil
}

// CheapestVM returns the minimum-cost vm variant. Ties go to the first inserted.
func CheapestVM(catalog *types.CostCatalog) (types.Candidate, bool) {
	var best types.Candidate
	found := false
	for _, v := range catalog.InGroup(types.GroupVM) {
		if !found || v.MonthlyCost.LessThan(best.MonthlyCost) {
			best = types.Candidate{Name: v.Name, MonthlyCost: v.MonthlyCost}
			found = true
		}
	}
	return best, found
}
