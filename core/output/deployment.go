package output

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/determinism"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

// DeploymentFilename is the conventional name of the terminal artifact
const DeploymentFilename = "deployment.json"

// DecisionFilename is the conventional name of the selection artifact
const DecisionFilename = "decision.json"

// CandidateDocument is a named cost
type CandidateDocument struct {
	Name        string      `json:"name"`
	MonthlyCost json.Number `json:"monthly_cost"`
}

// DecisionDocument is the wire form of a decision
type DecisionDocument struct {
	Chosen       string            `json:"chosen"`
	Scenario     types.Scenario    `json:"scenario"`
	MonthlyCost  json.Number       `json:"monthly_cost"`
	VMCheapest   CandidateDocument `json:"vm_cheapest"`
	PaaSTotal    *json.Number      `json:"paas_total"`
	BudgetEUR    json.Number       `json:"budget_eur"`
	WithinBudget bool              `json:"within_budget"`
}

// DeploymentDocument is the wire form of deployment.json
type DeploymentDocument struct {
	DeploymentID string `json:"deployment_id"`
	DecisionDocument
	Outputs       map[string]string `json:"outputs"`
	CatalogDigest string            `json:"catalog_digest,omitempty"`
	Message       string            `json:"message"`
}

// NewDecisionDocument converts a decision to its wire form
func NewDecisionDocument(d types.Decision) DecisionDocument {
	return DecisionDocument{
		Chosen:      d.Chosen(),
		Scenario:    d.Scenario,
		MonthlyCost: money(d.ChosenCost),
		VMCheapest: CandidateDocument{
			Name:        string(d.CheapestVM.Name),
			MonthlyCost: money(d.CheapestVM.MonthlyCost),
		},
		PaaSTotal:    nullMoney(d.PaaSAggregateCost),
		BudgetEUR:    money(d.BudgetEUR),
		WithinBudget: d.WithinBudget,
	}
}

// NewDeploymentDocument converts a record to its wire form
func NewDeploymentDocument(r *types.DeploymentRecord) DeploymentDocument {
	return DeploymentDocument{
		DeploymentID:     r.DeploymentID(),
		DecisionDocument: NewDecisionDocument(r.Decision()),
		Outputs:          r.Outputs(),
		CatalogDigest:    r.CatalogDigest(),
		Message:          r.Message(),
	}
}

// EncodeDeployment renders deployment.json
func EncodeDeployment(r *types.DeploymentRecord) ([]byte, error) {
	if r == nil {
		return nil, errors.Input("cannot encode a nil deployment record")
	}
	data, err := marshal(NewDeploymentDocument(r))
	if err != nil {
		return nil, errors.Internal("failed to encode deployment record", err)
	}
	return data, nil
}

// EncodeDecision renders decision.json
func EncodeDecision(d types.Decision) ([]byte, error) {
	data, err := marshal(NewDecisionDocument(d))
	if err != nil {
		return nil, errors.Internal("failed to encode decision", err)
	}
	return data, nil
}

func money(d decimal.Decimal) json.Number {
	return determinism.FixedNumber(d, types.CostPlaces)
}

func nullMoney(n decimal.NullDecimal) *json.Number {
	if !n.Valid {
		return nil
	}
	m := money(n.Decimal)
	return &m
}
