// Package catalog encodes the cost catalog artifact (costs.json), the only
// handoff between the catalog-build stage and the selection stage.
//
// The artifact has two top-level keys:
//
//	environments                 variant key -> {monthly_cost, resources}
//	gcp_paas_total_from_config   aggregate PaaS price, or null if unpriced
//
// Environment keys are written in catalog insertion order and decoding keeps
// that order, so first-seen tie-breaking survives the handoff.
package catalog

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/determinism"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

// Filename is the conventional artifact name
const Filename = "costs.json"

type environment struct {
	MonthlyCost json.Number            `json:"monthly_cost"`
	Resources   []types.ResourceChange `json:"resources"`
}

type document struct {
	Environments *determinism.OrderedMap[environment] `json:"environments"`
	PaaSTotal    *json.Number                         `json:"gcp_paas_total_from_config"`
}

// Encode serializes a catalog. Identical catalogs encode to identical bytes.
func Encode(c *types.CostCatalog) ([]byte, error) {
	if c == nil {
		return nil, errors.Input("cannot encode a nil catalog")
	}

	doc := document{Environments: determinism.NewOrderedMap[environment]()}
	for _, v := range c.Variants() {
		resources := v.Resources
		if resources == nil {
			resources = []types.ResourceChange{}
		}
		doc.Environments.Set(string(v.Name), environment{
			MonthlyCost: determinism.FixedNumber(v.MonthlyCost, types.CostPlaces),
			Resources:   resources,
		})
	}
	if agg := c.PaaSAggregateCost(); agg.Valid {
		n := determinism.FixedNumber(agg.Decimal, types.CostPlaces)
		doc.PaaSTotal = &n
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Internal("failed to encode catalog", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a costs.json artifact back into an immutable catalog
func Decode(data []byte) (*types.CostCatalog, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "costs artifact is not valid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Input("costs artifact has trailing data")
	}
	if doc.Environments == nil {
		return nil, errors.Input("costs artifact has no environments")
	}

	variants := make([]types.VariantCost, 0, doc.Environments.Len())
	var decodeErr error
	doc.Environments.Range(func(key string, env environment) bool {
		name := types.VariantName(key)
		if _, _, ok := types.SplitKey(name); !ok {
			decodeErr = errors.Newf(errors.TypeInput, "environment key %q is not namespaced", key)
			return false
		}
		cost, err := parseCost(env.MonthlyCost)
		if err != nil {
			decodeErr = errors.Wrapf(errors.TypeInput, err, "environment %s has invalid monthly_cost", key)
			return false
		}
		resources := env.Resources
		if resources == nil {
			resources = []types.ResourceChange{}
		}
		for i := range resources {
			if resources[i].Actions == nil {
				resources[i].Actions = []string{}
			}
			if resources[i].Attributes == nil {
				resources[i].Attributes = map[string]interface{}{}
			}
		}
		variants = append(variants, types.VariantCost{
			Name:        name,
			MonthlyCost: cost,
			Resources:   resources,
		})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	var paas decimal.NullDecimal
	if doc.PaaSTotal != nil {
		total, err := parseCost(*doc.PaaSTotal)
		if err != nil {
			return nil, errors.Wrap(errors.TypeInput, "invalid gcp_paas_total_from_config", err)
		}
		paas = decimal.NewNullDecimal(total)
	}

	c, err := types.NewCostCatalog(variants, paas)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "invalid costs artifact", err)
	}
	return c, nil
}

// Digest identifies the encoded form of a catalog
func Digest(c *types.CostCatalog) (string, error) {
	data, err := Encode(c)
	if err != nil {
		return "", err
	}
	return determinism.ComputeHash(data).Hex(), nil
}

func parseCost(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, errors.New(errors.TypeInput, "missing value")
	}
	return determinism.ParseNumber(n)
}
