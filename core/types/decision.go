// Package types - Selection and deployment types
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scenario is the top-level choice between one VM variant and the whole PaaS topology
type Scenario string

const (
	ScenarioVM   Scenario = "vm"
	ScenarioPaaS Scenario = "paas"
	ScenarioNone Scenario = "none"
)

// String returns the string representation
func (s Scenario) String() string {
	return string(s)
}

// NotAvailable replaces apply outputs the provider did not report
const NotAvailable = "not available"

// Candidate is a named variant with its cost
type Candidate struct {
	Name        VariantName     `json:"name"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
}

// Decision is the outcome of selecting from a catalog
type Decision struct {
	Scenario Scenario `json:"scenario"`

	// ChosenVariant is empty unless Scenario is vm
	ChosenVariant VariantName `json:"chosen_variant,omitempty"`

	// ChosenCost is the cost that was compared against the budget
	ChosenCost decimal.Decimal `json:"chosen_cost"`

	// CheapestVM is always populated for audit
	CheapestVM Candidate `json:"cheapest_vm"`

	PaaSAggregateCost decimal.NullDecimal `json:"paas_aggregate_cost"`
	BudgetEUR         decimal.Decimal     `json:"budget_eur"`
	WithinBudget      bool                `json:"within_budget"`
}

// Chosen returns a display label for what the decision authorizes
func (d Decision) Chosen() string {
	switch d.Scenario {
	case ScenarioVM:
		return string(d.ChosenVariant)
	case ScenarioPaaS:
		return string(GroupPaaS)
	default:
		return string(ScenarioNone)
	}
}

// Summary describes the comparison in one line
func (d Decision) Summary() string {
	paas := "unpriced"
	if d.PaaSAggregateCost.Valid {
		paas = d.PaaSAggregateCost.Decimal.StringFixed(CostPlaces)
	}
	return fmt.Sprintf("scenario=%s chosen=%s cost=%s cheapest_vm=%s(%s) paas_total=%s budget=%s",
		d.Scenario, d.Chosen(), d.ChosenCost.StringFixed(CostPlaces),
		d.CheapestVM.Name, d.CheapestVM.MonthlyCost.StringFixed(CostPlaces),
		paas, d.BudgetEUR.StringFixed(CostPlaces))
}

// DeploymentRecord is the terminal artifact of a successful provisioning run.
// It owns a copy of its decision and outputs and cannot be changed afterwards.
type DeploymentRecord struct {
	deploymentID  string
	decision      Decision
	outputs       map[string]string
	catalogDigest string
}

// NewDeploymentRecord copies decision and outputs into a new record
func NewDeploymentRecord(deploymentID string, decision Decision, outputs map[string]string, catalogDigest string) *DeploymentRecord {
	out := make(map[string]string, len(outputs))
	for k, v := range outputs {
		out[k] = v
	}
	return &DeploymentRecord{
		deploymentID:  deploymentID,
		decision:      decision,
		outputs:       out,
		catalogDigest: catalogDigest,
	}
}

// DeploymentID is the caller-supplied correlation token
func (r *DeploymentRecord) DeploymentID() string {
	return r.deploymentID
}

// Decision returns the embedded decision
func (r *DeploymentRecord) Decision() Decision {
	return r.decision
}

// Outputs returns a copy of the provider outputs
func (r *DeploymentRecord) Outputs() map[string]string {
	out := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = v
	}
	return out
}

// Output returns one output value
func (r *DeploymentRecord) Output(key string) (string, bool) {
	v, ok := r.outputs[key]
	return v, ok
}

// CatalogDigest identifies the catalog the decision was derived from
func (r *DeploymentRecord) CatalogDigest() string {
	return r.catalogDigest
}

// Message is the operator-facing one-line result
func (r *DeploymentRecord) Message() string {
	ip, ok := r.outputs["public_ip"]
	if !ok {
		ip = NotAvailable
	}
	return fmt.Sprintf("Public IP: %s, Monthly cost: %s", ip, r.decision.ChosenCost.StringFixed(CostPlaces))
}
