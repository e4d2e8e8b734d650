package cmd

import (
	"context"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"iac-pipeline/adapters/ledger"
	"iac-pipeline/adapters/notify"
	"iac-pipeline/adapters/storage"
	"iac-pipeline/adapters/tofu"
	"iac-pipeline/core/bundle"
	"iac-pipeline/core/normalize"
	"iac-pipeline/core/pipeline"
	"iac-pipeline/core/provider"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/config"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// newProvider returns the plan/price/apply collaborator the config selects
func newProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Kind {
	case "offline":
		return tofu.NewOffline(), nil
	case "exec", "":
		tc := tofu.DefaultConfig()
		if cfg.TofuPath != "" {
			tc.TofuPath = cfg.TofuPath
		}
		if cfg.InfracostPath != "" {
			tc.InfracostPath = cfg.InfracostPath
		}
		if cfg.Timeout > 0 {
			tc.Timeout = cfg.Timeout
		}
		return tofu.New(tc, nil), nil
	default:
		return nil, errors.Newf(errors.TypeConfig, "unknown provider kind %q", cfg.Kind)
	}
}

func variantNames(names []string) []types.VariantName {
	out := make([]types.VariantName, len(names))
	for i, n := range names {
		out[i] = types.VariantName(n)
	}
	return out
}

// newProgress reports catalog build progress on w
func newProgress(w io.Writer, total int) func(types.VariantName, types.VariantCost) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Pricing variants..."),
		progressbar.OptionSetWidth(15),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(key types.VariantName, vc types.VariantCost) {
		bar.Describe(key.String())
		_ = bar.Add(1)
	}
}

// buildPipeline wires the pipeline from configuration. The returned func
// releases the connections it opened.
func buildPipeline(ctx context.Context, cfg *config.Config, progress io.Writer) (*pipeline.Pipeline, func(), error) {
	log := logging.Named("cli")
	closers := []func() error{}
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close failed", zap.Error(err))
			}
		}
	}

	p, err := newProvider(cfg.Provider)
	if err != nil {
		return nil, cleanup, err
	}

	registry := normalize.DefaultRegistry()
	if err := registry.Extend(cfg.Normalizer.Fields); err != nil {
		return nil, cleanup, errors.Config("invalid normalizer fields", err)
	}

	store, err := storage.StoreFactory(cfg.Artifacts)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, store.Close)

	deps := pipeline.Deps{
		Provider:   p,
		Normalizer: normalize.New(registry),
		Store:      store,
		Validator:  bundle.NewScanner(),
	}

	if cfg.Ledger.DSN != "" {
		l, err := ledger.Open(ctx, cfg.Ledger.DSN, cfg.Ledger.Table)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, l.Close)
		deps.Ledger = l
	}

	if n := notify.FromConfig(cfg.Notify); len(n) > 0 {
		deps.Notifier = n
	}

	opts := pipeline.Options{
		VMBundle:        types.NewBundle(cfg.Bundles.VM),
		PaaSBundle:      types.NewBundle(cfg.Bundles.PaaS),
		VMVariants:      variantNames(cfg.Variants.VM),
		PaaSVariants:    variantNames(cfg.Variants.PaaS),
		PaaSCostConfig:  cfg.PaaSCostConfig,
		Budget:          decimal.NewFromFloat(cfg.BudgetEUR),
		Concurrency:     cfg.Concurrency,
		RequiredOutputs: cfg.RequiredOutputs,
	}
	if progress != nil {
		opts.OnVariantDone = newProgress(progress, len(opts.VMVariants)+len(opts.PaaSVariants))
	}

	pl, err := pipeline.New(opts, deps)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return pl, cleanup, nil
}
