// Package diff compares two cost catalogs variant by variant.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/types"
)

// ChangeType indicates the type of change
type ChangeType int

const (
	ChangeAdded     ChangeType = iota // Variant only in the new catalog
	ChangeRemoved                     // Variant only in the old catalog
	ChangeModified                    // Variant cost changed
	ChangeUnchanged                   // No cost change
)

// String returns the change type name
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// VariantDiff describes the change of a single variant
type VariantDiff struct {
	Name       types.VariantName
	ChangeType ChangeType

	// Before and After are zero when the variant is absent on that side
	Before decimal.Decimal
	After  decimal.Decimal
	Delta  decimal.Decimal

	ResourcesBefore int
	ResourcesAfter  int
}

// DiffResult is the complete diff between two catalogs
type DiffResult struct {
	// Variants follow the new catalog's order, then removed variants in the old order
	Variants []*VariantDiff

	PaaSBefore decimal.NullDecimal
	PaaSAfter  decimal.NullDecimal

	AddedCount     int
	RemovedCount   int
	ChangedCount   int
	UnchangedCount int
}

// Differ computes diffs between catalogs
type Differ struct {
	// Threshold below which an absolute change counts as unchanged
	Threshold decimal.Decimal
}

// NewDiffer creates a new differ. A zero threshold reports every cent.
func NewDiffer(threshold decimal.Decimal) *Differ {
	return &Differ{Threshold: threshold.Abs()}
}

// Diff computes the diff between before and after
func (d *Differ) Diff(before, after *types.CostCatalog) *DiffResult {
	result := &DiffResult{
		PaaSBefore: before.PaaSAggregateCost(),
		PaaSAfter:  after.PaaSAggregateCost(),
	}

	for _, v := range after.Variants() {
		vd := &VariantDiff{
			Name:           v.Name,
			After:          v.MonthlyCost,
			ResourcesAfter: len(v.Resources),
		}
		old, ok := before.Variant(v.Name)
		if !ok {
			vd.ChangeType = ChangeAdded
			vd.Delta = v.MonthlyCost
		} else {
			vd.Before = old.MonthlyCost
			vd.ResourcesBefore = len(old.Resources)
			vd.Delta = v.MonthlyCost.Sub(old.MonthlyCost)
			vd.ChangeType = ChangeModified
			if vd.Delta.Abs().LessThanOrEqual(d.Threshold) && vd.ResourcesBefore == vd.ResourcesAfter {
				vd.ChangeType = ChangeUnchanged
			}
		}
		result.add(vd)
	}

	for _, v := range before.Variants() {
		if _, ok := after.Variant(v.Name); ok {
			continue
		}
		result.add(&VariantDiff{
			Name:            v.Name,
			ChangeType:      ChangeRemoved,
			Before:          v.MonthlyCost,
			Delta:           v.MonthlyCost.Neg(),
			ResourcesBefore: len(v.Resources),
		})
	}

	return result
}

func (r *DiffResult) add(vd *VariantDiff) {
	r.Variants = append(r.Variants, vd)
	switch vd.ChangeType {
	case ChangeAdded:
		r.AddedCount++
	case ChangeRemoved:
		r.RemovedCount++
	case ChangeModified:
		r.ChangedCount++
	default:
		r.UnchangedCount++
	}
}

// PaaSDelta is the aggregate change; invalid unless both sides are priced
func (r *DiffResult) PaaSDelta() decimal.NullDecimal {
	if !r.PaaSBefore.Valid || !r.PaaSAfter.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(r.PaaSAfter.Decimal.Sub(r.PaaSBefore.Decimal))
}

// HasChanges reports whether anything differs
func (r *DiffResult) HasChanges() bool {
	if r.AddedCount+r.RemovedCount+r.ChangedCount > 0 {
		return true
	}
	if r.PaaSBefore.Valid != r.PaaSAfter.Valid {
		return true
	}
	delta := r.PaaSDelta()
	return delta.Valid && !delta.Decimal.IsZero()
}

// Summary provides a human-readable summary
func (r *DiffResult) Summary() string {
	var b strings.Builder
	if !r.HasChanges() {
		b.WriteString("No cost change\n")
		return b.String()
	}
	for _, vd := range r.Variants {
		switch vd.ChangeType {
		case ChangeAdded:
			fmt.Fprintf(&b, "  + %-24s %s\n", vd.Name, vd.After.StringFixed(types.CostPlaces))
		case ChangeRemoved:
			fmt.Fprintf(&b, "  - %-24s %s\n", vd.Name, vd.Before.StringFixed(types.CostPlaces))
		case ChangeModified:
			fmt.Fprintf(&b, "  ~ %-24s %s -> %s (%s)\n", vd.Name,
				vd.Before.StringFixed(types.CostPlaces), vd.After.StringFixed(types.CostPlaces), signed(vd.Delta))
		}
	}
	if delta := r.PaaSDelta(); delta.Valid && !delta.Decimal.IsZero() {
		fmt.Fprintf(&b, "  ~ %-24s %s -> %s (%s)\n", "PaaS aggregate",
			r.PaaSBefore.Decimal.StringFixed(types.CostPlaces), r.PaaSAfter.Decimal.StringFixed(types.CostPlaces), signed(delta.Decimal))
	} else if r.PaaSBefore.Valid != r.PaaSAfter.Valid {
		fmt.Fprintf(&b, "  ~ %-24s %s -> %s\n", "PaaS aggregate", nullString(r.PaaSBefore), nullString(r.PaaSAfter))
	}
	fmt.Fprintf(&b, "%d added, %d removed, %d changed, %d unchanged\n",
		r.AddedCount, r.RemovedCount, r.ChangedCount, r.UnchangedCount)
	return b.String()
}

// TopChanges returns the variants with the largest cost impact
func (r *DiffResult) TopChanges(n int) []*VariantDiff {
	var all []*VariantDiff
	for _, vd := range r.Variants {
		if vd.ChangeType != ChangeUnchanged {
			all = append(all, vd)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Delta.Abs().GreaterThan(all[j].Delta.Abs())
	})

	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

func signed(d decimal.Decimal) string {
	s := d.StringFixed(types.CostPlaces)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func nullString(n decimal.NullDecimal) string {
	if !n.Valid {
		return "unpriced"
	}
	return n.Decimal.StringFixed(types.CostPlaces)
}
