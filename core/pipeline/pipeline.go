// Package pipeline ties the stages together: build and persist the cost
// catalog, select from the persisted catalog, provision the decision and
// record the deployment. The persisted catalog is the only handoff between
// the catalog and provisioning stages.
package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"iac-pipeline/core/catalog"
	"iac-pipeline/core/cost"
	"iac-pipeline/core/normalize"
	"iac-pipeline/core/output"
	"iac-pipeline/core/provider"
	"iac-pipeline/core/provision"
	"iac-pipeline/core/selector"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// ArtifactStore persists pipeline artifacts by key
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// BundleValidator checks bundles before any provider call
type BundleValidator interface {
	Validate(root string, variants []types.VariantName) error
}

// Recorder appends deployment records to a history
type Recorder interface {
	Record(ctx context.Context, rec *types.DeploymentRecord) error
}

// Notifier publishes reports. It must not fail the pipeline.
type Notifier interface {
	Notify(ctx context.Context, report *output.Report)
}

// Options are the per-run inputs
type Options struct {
	VMBundle   types.Bundle
	PaaSBundle types.Bundle

	VMVariants   []types.VariantName
	PaaSVariants []types.VariantName

	// PaaSCostConfig is priced at the PaaS bundle root as one scenario
	PaaSCostConfig string

	Budget decimal.Decimal

	Concurrency     int
	RequiredOutputs []string

	// Timeout bounds the catalog build; zero means no limit
	Timeout time.Duration

	// OnVariantDone reports catalog build progress
	OnVariantDone func(key types.VariantName, vc types.VariantCost)
}

// Deps are the collaborators. Validator, Ledger and Notifier are optional.
type Deps struct {
	Provider   provider.Provider
	Normalizer *normalize.Normalizer
	Store      ArtifactStore
	Validator  BundleValidator
	Ledger     Recorder
	Notifier   Notifier
}

// Pipeline runs the stages
type Pipeline struct {
	opts        Options
	deps        Deps
	builder     *cost.Builder
	provisioner *provision.Provisioner
	log         *zap.Logger
}

// New creates a pipeline
func New(opts Options, deps Deps) (*Pipeline, error) {
	if deps.Provider == nil {
		return nil, errors.New(errors.TypeConfig, "pipeline requires a provider")
	}
	if deps.Store == nil {
		return nil, errors.New(errors.TypeConfig, "pipeline requires an artifact store")
	}
	if opts.Budget.IsNegative() {
		return nil, errors.Newf(errors.TypeInput, "budget must not be negative, got %s", opts.Budget)
	}
	if opts.PaaSCostConfig == "" {
		return nil, errors.New(errors.TypeConfig, "paas cost config is required")
	}

	evaluator := cost.NewEvaluator(deps.Provider, deps.Normalizer)
	return &Pipeline{
		opts: opts,
		deps: deps,
		builder: cost.NewBuilder(deps.Provider, evaluator, cost.BuilderConfig{
			Concurrency:    opts.Concurrency,
			PaaSCostConfig: opts.PaaSCostConfig,
			OnVariantDone:  opts.OnVariantDone,
		}),
		provisioner: provision.New(deps.Provider, opts.RequiredOutputs),
		log:         logging.Named("pipeline"),
	}, nil
}

// Catalog builds the cost catalog and persists costs.json
func (p *Pipeline) Catalog(ctx context.Context) (*types.CostCatalog, error) {
	if err := p.validateBundles(); err != nil {
		return nil, err
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	c, err := p.builder.Build(ctx, p.opts.VMBundle, p.opts.PaaSBundle, p.opts.VMVariants, p.opts.PaaSVariants)
	if err != nil {
		return nil, err
	}

	data, err := catalog.Encode(c)
	if err != nil {
		return nil, err
	}
	if err := p.deps.Store.Put(ctx, catalog.Filename, data); err != nil {
		return nil, err
	}

	p.log.Info("catalog persisted", zap.String("key", catalog.Filename), zap.Int("variants", c.Len()))
	return c, nil
}

// LoadCatalog reads back the persisted catalog and its digest
func (p *Pipeline) LoadCatalog(ctx context.Context) (*types.CostCatalog, string, error) {
	data, err := p.deps.Store.Get(ctx, catalog.Filename)
	if err != nil {
		return nil, "", err
	}
	c, err := catalog.Decode(data)
	if err != nil {
		return nil, "", err
	}
	digest, err := catalog.Digest(c)
	if err != nil {
		return nil, "", err
	}
	return c, digest, nil
}

// Select applies the selection policy to the persisted catalog and persists decision.json
func (p *Pipeline) Select(ctx context.Context) (*output.Report, error) {
	c, _, err := p.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return p.selectFrom(ctx, c)
}

func (p *Pipeline) selectFrom(ctx context.Context, c *types.CostCatalog) (*output.Report, error) {
	decision, err := selector.Select(c, p.opts.Budget)
	if err != nil {
		return &output.Report{Catalog: c}, err
	}
	report := &output.Report{Catalog: c, Decision: &decision}

	data, err := output.EncodeDecision(decision)
	if err != nil {
		return report, err
	}
	if err := p.deps.Store.Put(ctx, output.DecisionFilename, data); err != nil {
		return report, err
	}
	return report, nil
}

// Provision re-derives the decision from the persisted catalog, applies it and
// persists deployment.json. An over-budget decision returns a budget error and
// a report holding the decision; nothing is applied.
func (p *Pipeline) Provision(ctx context.Context, deploymentID string) (*output.Report, error) {
	if deploymentID == "" {
		return nil, errors.Input("deployment id is required")
	}

	c, digest, err := p.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.selectFrom(ctx, c)
	if err != nil {
		return report, err
	}

	rec, err := p.provisioner.Provision(ctx, *report.Decision, p.opts.VMBundle, p.opts.PaaSBundle, deploymentID, digest)
	if err != nil {
		if errors.IsType(err, errors.TypeBudgetExceeded) {
			p.notify(ctx, report)
		}
		return report, err
	}
	report.Record = rec

	data, err := output.EncodeDeployment(rec)
	if err != nil {
		return report, err
	}
	if err := p.deps.Store.Put(ctx, output.DeploymentFilename, data); err != nil {
		return report, err
	}

	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.Record(ctx, rec); err != nil {
			p.log.Warn("ledger write failed", zap.String("deployment_id", deploymentID), zap.Error(err))
		}
	}
	p.notify(ctx, report)

	p.log.Info("deployment complete", zap.String("deployment_id", deploymentID), zap.String("message", rec.Message()))
	return report, nil
}

// Run builds the catalog, then provisions from the persisted copy
func (p *Pipeline) Run(ctx context.Context, deploymentID string) (*output.Report, error) {
	if deploymentID == "" {
		return nil, errors.Input("deployment id is required")
	}
	c, err := p.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.Provision(ctx, deploymentID)
	if report == nil {
		report = &output.Report{Catalog: c}
	}
	return report, err
}

func (p *Pipeline) validateBundles() error {
	if p.deps.Validator == nil {
		return nil
	}
	if err := p.deps.Validator.Validate(p.opts.VMBundle.Root, p.opts.VMVariants); err != nil {
		return err
	}
	return p.deps.Validator.Validate(p.opts.PaaSBundle.Root, p.opts.PaaSVariants)
}

func (p *Pipeline) notify(ctx context.Context, report *output.Report) {
	if p.deps.Notifier == nil {
		return
	}
	p.deps.Notifier.Notify(ctx, report)
}
