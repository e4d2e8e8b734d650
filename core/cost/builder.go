package cost

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// DefaultConcurrency bounds parallel evaluations when none is configured
const DefaultConcurrency = 4

// BuilderConfig configures a catalog builder
type BuilderConfig struct {
	// Concurrency bounds in-flight variant evaluations
	Concurrency int

	// PaaSCostConfig is the combined cost configuration priced at the PaaS bundle root
	PaaSCostConfig string

	// OnVariantDone is called once per successfully evaluated variant.
	// It may be called from several goroutines, never concurrently.
	OnVariantDone func(key types.VariantName, vc types.VariantCost)
}

// Builder assembles a CostCatalog from independent variant evaluations
type Builder struct {
	provider  provider.PlanAndPriceProvider
	evaluator *Evaluator
	config    BuilderConfig
	doneMu    sync.Mutex
}

// NewBuilder creates a catalog builder
func NewBuilder(p provider.PlanAndPriceProvider, evaluator *Evaluator, cfg BuilderConfig) *Builder {
	if evaluator == nil {
		evaluator = NewEvaluator(p, nil)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Builder{
		provider:  p,
		evaluator: evaluator,
		config:    cfg,
	}
}

type job struct {
	key     types.VariantName
	bundle  types.Bundle
	variant types.VariantName
}

// Build evaluates every VM variant against vmBundle and every PaaS variant
// against paasBundle, plus one aggregate price of the whole PaaS bundle.
// Any failure cancels the remaining evaluations and no catalog is returned.
func (b *Builder) Build(ctx context.Context, vmBundle, paasBundle types.Bundle, vmVariants, paasVariants []types.VariantName) (*types.CostCatalog, error) {
	log := logging.Named("catalog")

	jobs, err := plan(vmBundle, paasBundle, vmVariants, paasVariants)
	if err != nil {
		return nil, err
	}

	log.Info("building cost catalog",
		zap.Int("vm_variants", len(vmVariants)),
		zap.Int("paas_variants", len(paasVariants)),
		zap.Int("concurrency", b.config.Concurrency))

	results := make([]types.VariantCost, len(jobs))
	var aggregate decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	g.Go(func() error {
		cost, err := b.aggregatePrice(gctx, paasBundle)
		if err != nil {
			return err
		}
		aggregate = cost
		return nil
	})

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vc, err := b.evaluator.Evaluate(gctx, j.bundle, j.variant)
			if err != nil {
				return err
			}
			vc.Name = j.key
			results[i] = vc
			b.notify(j.key, vc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("catalog build failed", zap.Error(err))
		return nil, err
	}

	catalog, err := types.NewCostCatalog(results, decimal.NewNullDecimal(aggregate))
	if err != nil {
		return nil, errors.Internal("failed to assemble catalog", err)
	}

	log.Info("cost catalog built",
		zap.Int("variants", catalog.Len()),
		zap.String("paas_aggregate", aggregate.StringFixed(types.CostPlaces)))

	return catalog, nil
}

func (b *Builder) aggregatePrice(ctx context.Context, paasBundle types.Bundle) (decimal.Decimal, error) {
	res, err := b.provider.AggregatePrice(ctx, paasBundle, b.config.PaaSCostConfig)
	if err != nil {
		return decimal.Zero, errors.Provider("aggregate PaaS price failed", err).
			WithContext("config", b.config.PaaSCostConfig)
	}
	if res == nil || !res.MonthlyCost.Valid {
		return decimal.Zero, errors.Provider("aggregate PaaS price has no monthly cost", nil).
			WithContext("config", b.config.PaaSCostConfig)
	}
	if res.MonthlyCost.Decimal.IsNegative() {
		return decimal.Zero, errors.Newf(errors.TypeProvider, "aggregate PaaS price is negative: %s", res.MonthlyCost.Decimal).
			WithContext("config", b.config.PaaSCostConfig)
	}
	return RoundCost(res.MonthlyCost.Decimal), nil
}

func (b *Builder) notify(key types.VariantName, vc types.VariantCost) {
	if b.config.OnVariantDone == nil {
		return
	}
	b.doneMu.Lock()
	defer b.doneMu.Unlock()
	b.config.OnVariantDone(key, vc)
}

// plan expands both groups into namespaced jobs, VM first, each group in declared order
func plan(vmBundle, paasBundle types.Bundle, vmVariants, paasVariants []types.VariantName) ([]job, error) {
	jobs := make([]job, 0, len(vmVariants)+len(paasVariants))
	seen := make(map[types.VariantName]bool)

	add := func(g types.Group, bundle types.Bundle, names []types.VariantName) error {
		for _, name := range names {
			if name == "" {
				return errors.Newf(errors.TypeInput, "empty %s variant name", g)
			}
			key := types.Key(g, name)
			if seen[key] {
				return errors.Newf(errors.TypeInput, "duplicate variant %s", key)
			}
			seen[key] = true
			jobs = append(jobs, job{key: key, bundle: bundle, variant: name})
		}
		return nil
	}

	if err := add(types.GroupVM, vmBundle, vmVariants); err != nil {
		return nil, err
	}
	if err := add(types.GroupPaaS, paasBundle, paasVariants); err != nil {
		return nil, err
	}
	return jobs, nil
}
