package selector

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type entry struct {
	key  string
	cost string
}

func catalog(t *testing.T, paas string, entries ...entry) *types.CostCatalog {
	t.Helper()
	variants := make([]types.VariantCost, 0, len(entries))
	for _, e := range entries {
		variants = append(variants, types.VariantCost{Name: types.VariantName(e.key), MonthlyCost: dec(e.cost)})
	}
	agg := decimal.NullDecimal{}
	if paas != "" {
		agg = decimal.NewNullDecimal(dec(paas))
	}
	c, err := types.NewCostCatalog(variants, agg)
	if err != nil {
		t.Fatalf("NewCostCatalog: %v", err)
	}
	return c
}

func TestSelectScenarios(t *testing.T) {
	tests := []struct {
		name         string
		catalog      *types.CostCatalog
		budget       string
		wantScenario types.Scenario
		wantVariant  types.VariantName
		wantCost     string
		wantWithin   bool
		wantCheapest types.VariantName
	}{
		{
			name:         "paas aggregate strictly cheaper",
			catalog:      catalog(t, "38.00", entry{"vm:a", "40.00"}, entry{"vm:b", "55.50"}),
			budget:       "50.00",
			wantScenario: types.ScenarioPaaS,
			wantCost:     "38.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name:         "vm cheaper than paas",
			catalog:      catalog(t, "60.00", entry{"vm:a", "40.00"}),
			budget:       "45.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "40.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name:         "winner over budget",
			catalog:      catalog(t, "80.00", entry{"vm:a", "90.00"}),
			budget:       "50.00",
			wantScenario: types.ScenarioNone,
			wantCost:     "80.00",
			wantWithin:   false,
			wantCheapest: "vm:a",
		},
		{
			name:         "equal costs keep vm",
			catalog:      catalog(t, "40.00", entry{"vm:a", "40.00"}),
			budget:       "50.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "40.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name:         "cost equal to budget is within",
			catalog:      catalog(t, "", entry{"vm:a", "50.00"}),
			budget:       "50.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "50.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name:         "unpriced paas never wins",
			catalog:      catalog(t, "", entry{"vm:a", "12.00"}),
			budget:       "50.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "12.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name: "per-piece paas variants are ignored",
			catalog: catalog(t, "70.00",
				entry{"vm:a", "60.00"}, entry{"paas:cloud-run", "1.00"}, entry{"paas:cloud-sql", "2.00"}),
			budget:       "100.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "60.00",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
		{
			name:         "ties go to first inserted",
			catalog:      catalog(t, "", entry{"vm:b", "20.00"}, entry{"vm:a", "20.00"}, entry{"vm:c", "30.00"}),
			budget:       "50.00",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:b",
			wantCost:     "20.00",
			wantWithin:   true,
			wantCheapest: "vm:b",
		},
		{
			name:         "zero budget",
			catalog:      catalog(t, "0", entry{"vm:a", "0"}),
			budget:       "0",
			wantScenario: types.ScenarioVM,
			wantVariant:  "vm:a",
			wantCost:     "0",
			wantWithin:   true,
			wantCheapest: "vm:a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Select(tt.catalog, dec(tt.budget))
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if d.Scenario != tt.wantScenario {
				t.Errorf("Scenario = %s, want %s", d.Scenario, tt.wantScenario)
			}
			if d.ChosenVariant != tt.wantVariant {
				t.Errorf("ChosenVariant = %q, want %q", d.ChosenVariant, tt.wantVariant)
			}
			if !d.ChosenCost.Equal(dec(tt.wantCost)) {
				t.Errorf("ChosenCost = %s, want %s", d.ChosenCost, tt.wantCost)
			}
			if d.WithinBudget != tt.wantWithin {
				t.Errorf("WithinBudget = %v", d.WithinBudget)
			}
			if d.CheapestVM.Name != tt.wantCheapest {
				t.Errorf("CheapestVM = %s, want %s", d.CheapestVM.Name, tt.wantCheapest)
			}
			if !d.BudgetEUR.Equal(dec(tt.budget)) {
				t.Errorf("BudgetEUR = %s", d.BudgetEUR)
			}
		})
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	tests := []*types.CostCatalog{
		nil,
		catalog(t, "10.00"),
		catalog(t, "10.00", entry{"paas:cloud-run", "1.00"}),
	}
	for i, c := range tests {
		_, err := Select(c, dec("50"))
		if !errors.IsType(err, errors.TypeEmptyCatalog) {
			t.Errorf("case %d: err = %v, want empty catalog error", i, err)
		}
	}
}

func TestSelectDoesNotModifyCatalog(t *testing.T) {
	c := catalog(t, "38.00", entry{"vm:a", "40.00"}, entry{"vm:b", "55.50"})
	before := catalog(t, "38.00", entry{"vm:a", "40.00"}, entry{"vm:b", "55.50"})
	if _, err := Select(c, dec("50")); err != nil {
		t.Fatal(err)
	}
	if !c.Equal(before) {
		t.Error("catalog changed during selection")
	}
}

// Randomized catalogs checked against a straightforward reference.
func TestSelectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	costs := []string{"0", "9.99", "10.00", "25.50", "40.00", "49.99", "50.00", "50.01", "75.25"}
	pick := func() string { return costs[rng.Intn(len(costs))] }

	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(5)
		entries := make([]entry, 0, n)
		for i := 0; i < n; i++ {
			entries = append(entries, entry{string(types.Key(types.GroupVM, types.VariantName(rune('a'+i)))), pick()})
		}
		paas := ""
		if rng.Intn(4) > 0 {
			paas = pick()
		}
		budget := dec(pick())
		c := catalog(t, paas, entries...)

		d, err := Select(c, budget)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}

		// min-correctness with first-seen ties
		want := entries[0]
		for _, e := range entries[1:] {
			if dec(e.cost).LessThan(dec(want.cost)) {
				want = e
			}
		}
		if string(d.CheapestVM.Name) != want.key || !d.CheapestVM.MonthlyCost.Equal(dec(want.cost)) {
			t.Fatalf("CheapestVM = %s(%s), want %s(%s)", d.CheapestVM.Name, d.CheapestVM.MonthlyCost, want.key, want.cost)
		}

		vmCost := dec(want.cost)
		switch {
		case paas != "" && dec(paas).LessThan(vmCost) && dec(paas).LessThanOrEqual(budget):
			if d.Scenario != types.ScenarioPaaS || d.ChosenVariant != "" {
				t.Fatalf("expected paas, got %s", d.Summary())
			}
		case vmCost.LessThanOrEqual(budget) && (paas == "" || vmCost.LessThanOrEqual(dec(paas))):
			if d.Scenario != types.ScenarioVM || string(d.ChosenVariant) != want.key {
				t.Fatalf("expected vm %s, got %s", want.key, d.Summary())
			}
		default:
			if d.Scenario != types.ScenarioNone || d.ChosenVariant != "" || d.WithinBudget {
				t.Fatalf("expected none, got %s", d.Summary())
			}
		}
	}
}
