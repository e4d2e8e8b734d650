package tofu

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SensitiveValue replaces outputs marked sensitive
const SensitiveValue = "(sensitive)"

// planDocument is the part of `tofu show -json` the pipeline consumes
type planDocument struct {
	FormatVersion   string          `json:"format_version"`
	ResourceChanges json.RawMessage `json:"resource_changes"`
}

// ParsePlan extracts the raw resource_changes member of a plan document.
// Its shape is checked by the evaluator, not here.
func ParsePlan(data []byte) (json.RawMessage, error) {
	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return doc.ResourceChanges, nil
}

type breakdown struct {
	TotalMonthlyCost *string `json:"totalMonthlyCost"`
	Projects         []struct {
		Name      string `json:"name"`
		Breakdown *struct {
			TotalMonthlyCost *string `json:"totalMonthlyCost"`
		} `json:"breakdown"`
	} `json:"projects"`
}

// ParseBreakdown reads the monthly total from `infracost breakdown --format json`.
// The top-level totalMonthlyCost wins; otherwise per-project totals are summed.
// The result is invalid when no total is reported at all.
func ParseBreakdown(data []byte) (decimal.NullDecimal, error) {
	var doc breakdown
	if err := json.Unmarshal(data, &doc); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("failed to parse cost JSON: %w", err)
	}

	if doc.TotalMonthlyCost != nil {
		d, err := decimal.NewFromString(*doc.TotalMonthlyCost)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("invalid totalMonthlyCost %q: %w", *doc.TotalMonthlyCost, err)
		}
		return decimal.NewNullDecimal(d), nil
	}

	var (
		sum   decimal.Decimal
		found bool
	)
	for _, p := range doc.Projects {
		if p.Breakdown == nil || p.Breakdown.TotalMonthlyCost == nil {
			continue
		}
		d, err := decimal.NewFromString(*p.Breakdown.TotalMonthlyCost)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("project %s: invalid totalMonthlyCost: %w", p.Name, err)
		}
		sum = sum.Add(d)
		found = true
	}
	if !found {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(sum), nil
}

type outputValue struct {
	Sensitive bool            `json:"sensitive"`
	Value     json.RawMessage `json:"value"`
}

// ParseOutputs flattens `tofu output -json` into strings. String values are
// taken as is; other values keep their compact JSON form. Null values are
// omitted so callers treat them as unreported.
func ParseOutputs(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var doc map[string]outputValue
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse outputs JSON: %w", err)
	}

	for name, o := range doc {
		if o.Sensitive {
			out[name] = SensitiveValue
			continue
		}
		if v := bytes.TrimSpace(o.Value); len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(o.Value, &s); err == nil {
			out[name] = s
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, o.Value); err != nil {
			return nil, fmt.Errorf("output %s: %w", name, err)
		}
		out[name] = buf.String()
	}
	return out, nil
}
