// Package provision applies the infrastructure a decision authorizes.
// At most one apply runs per decision and failures are never retried.
package provision

import (
	"context"

	"go.uber.org/zap"

	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// DefaultRequiredOutputs are extracted when none are configured
var DefaultRequiredOutputs = []string{"public_ip"}

// Provisioner drives the apply provider for a decision
type Provisioner struct {
	provider provider.ApplyProvider
	required []string
}

// New creates a provisioner. required lists the output keys every record
// carries; keys the provider does not report are set to types.NotAvailable.
func New(p provider.ApplyProvider, required []string) *Provisioner {
	if required == nil {
		required = DefaultRequiredOutputs
	}
	return &Provisioner{
		provider: p,
		required: append([]string(nil), required...),
	}
}

// Provision applies the decision's target and returns the deployment record.
// A none scenario fails with a budget error before the provider is touched.
func (p *Provisioner) Provision(ctx context.Context, decision types.Decision, vmBundle, paasBundle types.Bundle, deploymentID, catalogDigest string) (*types.DeploymentRecord, error) {
	log := logging.Named("provision").With(
		zap.String("deployment_id", deploymentID),
		zap.String("scenario", decision.Scenario.String()))

	bundle, target, err := Resolve(decision, vmBundle, paasBundle)
	if err != nil {
		return nil, err
	}

	log.Info("applying", zap.String("target", target.String()), zap.String("dir", target.Dir(bundle)))

	result, err := p.provider.Apply(ctx, bundle, target)
	if err != nil {
		log.Error("apply failed", zap.Error(err))
		return nil, errors.Provision("apply failed", err).
			WithContext("scenario", decision.Scenario.String()).
			WithContext("target", target.String()).
			WithContext("chosen_cost", decision.ChosenCost.StringFixed(types.CostPlaces))
	}

	outputs := p.extract(result)
	record := types.NewDeploymentRecord(deploymentID, decision, outputs, catalogDigest)

	log.Info("provisioned", zap.String("message", record.Message()))
	return record, nil
}

// Resolve maps a decision to the bundle and target an apply acts on
func Resolve(decision types.Decision, vmBundle, paasBundle types.Bundle) (types.Bundle, provider.Target, error) {
	switch decision.Scenario {
	case types.ScenarioNone:
		return types.Bundle{}, provider.Target{}, errors.BudgetExceeded("no scenario fits the budget").
			WithContext("chosen_cost", decision.ChosenCost.StringFixed(types.CostPlaces)).
			WithContext("budget_eur", decision.BudgetEUR.StringFixed(types.CostPlaces)).
			WithContext("cheapest_vm", decision.CheapestVM.Name.String())

	case types.ScenarioVM:
		g, name, ok := types.SplitKey(decision.ChosenVariant)
		if !ok || g != types.GroupVM {
			return types.Bundle{}, provider.Target{}, errors.Newf(errors.TypeInput,
				"vm decision names invalid variant %q", decision.ChosenVariant)
		}
		return vmBundle, provider.VariantTarget(name), nil

	case types.ScenarioPaaS:
		return paasBundle, provider.ScenarioTarget(), nil
	}

	return types.Bundle{}, provider.Target{}, errors.Newf(errors.TypeInput, "unknown scenario %q", decision.Scenario)
}

func (p *Provisioner) extract(result *provider.ApplyResult) map[string]string {
	outputs := make(map[string]string)
	if result != nil {
		for k, v := range result.Outputs {
			outputs[k] = v
		}
	}
	for _, key := range p.required {
		if _, ok := outputs[key]; !ok {
			outputs[key] = types.NotAvailable
		}
	}
	return outputs
}
