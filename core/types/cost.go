// Package types - Cost catalog types
package types

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code
type Currency string

// CurrencyEUR is the only currency budgets are expressed in
const CurrencyEUR Currency = "EUR"

// CostPlaces is the number of fraction digits monthly costs are rounded to
const CostPlaces int32 = 2

// Planned resource actions as reported by the planner
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionNoOp   = "no-op"
	ActionRead   = "read"
)

// ResourceChange is one planned resource in a uniform shape
type ResourceChange struct {
	// Address is unique within a plan
	Address string `json:"address"`

	// Type is the resource kind, e.g. google_compute_instance
	Type string `json:"type"`

	// ProviderName is the provider that owns the resource
	ProviderName string `json:"provider_name,omitempty"`

	// Actions are the planned operations in order; never nil
	Actions []string `json:"actions"`

	// ResourceName is the resource's local name
	ResourceName string `json:"resource_name,omitempty"`

	// Attributes holds the type-dependent fields copied from the planned state
	Attributes map[string]interface{} `json:"attributes"`
}

// VariantCost is one evaluated variant
type VariantCost struct {
	// Name is the namespaced catalog key
	Name VariantName `json:"-"`

	// MonthlyCost is rounded to CostPlaces and never negative
	MonthlyCost decimal.Decimal `json:"monthly_cost"`

	// Resources follow the provider's change-set order
	Resources []ResourceChange `json:"resources"`
}

// CostCatalog is the complete evaluation result of one pipeline run.
// It is immutable after construction.
type CostCatalog struct {
	order    []VariantName
	variants map[VariantName]VariantCost
	paas     decimal.NullDecimal
}

// NewCostCatalog builds a catalog from variants in the given order.
// Keys must be unique and costs non-negative.
func NewCostCatalog(variants []VariantCost, paasAggregate decimal.NullDecimal) (*CostCatalog, error) {
	c := &CostCatalog{
		order:    make([]VariantName, 0, len(variants)),
		variants: make(map[VariantName]VariantCost, len(variants)),
		paas:     paasAggregate,
	}
	for _, v := range variants {
		if v.Name == "" {
			return nil, fmt.Errorf("variant without a name")
		}
		if _, exists := c.variants[v.Name]; exists {
			return nil, fmt.Errorf("duplicate variant %q", v.Name)
		}
		if v.MonthlyCost.IsNegative() {
			return nil, fmt.Errorf("variant %q has negative monthly cost %s", v.Name, v.MonthlyCost)
		}
		c.order = append(c.order, v.Name)
		c.variants[v.Name] = cloneVariant(v)
	}
	if paasAggregate.Valid && paasAggregate.Decimal.IsNegative() {
		return nil, fmt.Errorf("negative PaaS aggregate cost %s", paasAggregate.Decimal)
	}
	return c, nil
}

// Names returns variant keys in insertion order
func (c *CostCatalog) Names() []VariantName {
	out := make([]VariantName, len(c.order))
	copy(out, c.order)
	return out
}

// Variants returns copies of all variants in insertion order
func (c *CostCatalog) Variants() []VariantCost {
	out := make([]VariantCost, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, cloneVariant(c.variants[k]))
	}
	return out
}

// Variant returns a copy of one variant
func (c *CostCatalog) Variant(name VariantName) (VariantCost, bool) {
	v, ok := c.variants[name]
	if !ok {
		return VariantCost{}, false
	}
	return cloneVariant(v), true
}

// InGroup returns copies of the variants of one group in insertion order
func (c *CostCatalog) InGroup(g Group) []VariantCost {
	var out []VariantCost
	for _, k := range c.order {
		if InGroup(k, g) {
			out = append(out, cloneVariant(c.variants[k]))
		}
	}
	return out
}

// PaaSAggregateCost is the separately priced whole-PaaS-scenario total
func (c *CostCatalog) PaaSAggregateCost() decimal.NullDecimal {
	return c.paas
}

// Len returns the number of variants
func (c *CostCatalog) Len() int {
	return len(c.order)
}

// Equal reports whether two catalogs hold the same variants in the same order
func (c *CostCatalog) Equal(other *CostCatalog) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.order) != len(other.order) || c.paas.Valid != other.paas.Valid {
		return false
	}
	if c.paas.Valid && !c.paas.Decimal.Equal(other.paas.Decimal) {
		return false
	}
	for i, k := range c.order {
		if other.order[i] != k {
			return false
		}
		if !variantEqual(c.variants[k], other.variants[k]) {
			return false
		}
	}
	return true
}

func variantEqual(a, b VariantCost) bool {
	if a.Name != b.Name || !a.MonthlyCost.Equal(b.MonthlyCost) || len(a.Resources) != len(b.Resources) {
		return false
	}
	for i := range a.Resources {
		if !a.Resources[i].Equal(b.Resources[i]) {
			return false
		}
	}
	return true
}

// Equal compares two resource changes field by field
func (r ResourceChange) Equal(o ResourceChange) bool {
	if r.Address != o.Address || r.Type != o.Type || r.ProviderName != o.ProviderName ||
		r.ResourceName != o.ResourceName || len(r.Actions) != len(o.Actions) {
		return false
	}
	for i := range r.Actions {
		if r.Actions[i] != o.Actions[i] {
			return false
		}
	}
	return valuesEqual(r.Attributes, o.Attributes)
}

func cloneVariant(v VariantCost) VariantCost {
	out := v
	out.Resources = make([]ResourceChange, len(v.Resources))
	for i, r := range v.Resources {
		out.Resources[i] = r.Clone()
	}
	return out
}

// Clone returns a deep copy
func (r ResourceChange) Clone() ResourceChange {
	out := r
	out.Actions = append([]string{}, r.Actions...)
	if r.Attributes != nil {
		out.Attributes = cloneValue(r.Attributes).(map[string]interface{})
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

func valuesEqual(a, b interface{}) bool {
	switch at := a.(type) {
	case map[string]interface{}:
		bt, ok := b.(map[string]interface{})
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case []interface{}:
		bt, ok := b.([]interface{})
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case nil:
		if b == nil {
			return true
		}
		if bm, ok := b.(map[string]interface{}); ok {
			return len(bm) == 0
		}
		return false
	default:
		return reflect.DeepEqual(a, b)
	}
}
