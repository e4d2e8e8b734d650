package catalog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

func mustCatalog(t *testing.T, paas string, variants ...types.VariantCost) *types.CostCatalog {
	t.Helper()
	agg := decimal.NullDecimal{}
	if paas != "" {
		agg = decimal.NewNullDecimal(decimal.RequireFromString(paas))
	}
	c, err := types.NewCostCatalog(variants, agg)
	if err != nil {
		t.Fatalf("NewCostCatalog: %v", err)
	}
	return c
}

func vc(name, cost string, resources ...types.ResourceChange) types.VariantCost {
	if resources == nil {
		resources = []types.ResourceChange{}
	}
	return types.VariantCost{
		Name:        types.VariantName(name),
		MonthlyCost: decimal.RequireFromString(cost),
		Resources:   resources,
	}
}

func TestEncodeLayout(t *testing.T) {
	c := mustCatalog(t, "38", vc("vm:a", "40"))

	got, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := `{
  "environments": {
    "vm:a": {
      "monthly_cost": 40.00,
      "resources": []
    }
  },
  "gcp_paas_total_from_config": 38.00
}
`
	if string(got) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeUnpricedAggregate(t *testing.T) {
	got, err := Encode(mustCatalog(t, "", vc("vm:a", "1.5")))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(got, []byte(`"gcp_paas_total_from_config": null`)) {
		t.Errorf("expected null aggregate, got\n%s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	instance := types.ResourceChange{
		Address:      "google_compute_instance.vm",
		Type:         "google_compute_instance",
		ProviderName: "registry.opentofu.org/hashicorp/google",
		Actions:      []string{"create"},
		ResourceName: "vm",
		Attributes: map[string]interface{}{
			"machine_type": "e2-small",
			"project":      "demo",
			"tags":         []interface{}{"http", "ssh"},
			"boot_disk": []interface{}{
				map[string]interface{}{"auto_delete": true, "size": json.Number("20")},
			},
		},
	}
	unknown := types.ResourceChange{
		Address: "google_cloud_function.fn",
		Type:    "google_cloud_function",
		Actions: []string{},
		Attributes: map[string]interface{}{
			"details": map[string]interface{}{"foo": "bar"},
		},
	}

	// insertion order deliberately not lexical
	original := mustCatalog(t, "38.01",
		vc("vm:k8s-vm", "40", instance),
		vc("vm:docker-vm", "40"),
		vc("vm:native", "55.5"),
		vc("paas:cloud-run", "0", unknown),
	)

	first, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Equal(original) {
		t.Error("decoded catalog differs from original")
	}

	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip is not byte-identical:\n%s\n---\n%s", first, second)
	}

	names := decoded.Names()
	if names[0] != "vm:k8s-vm" || names[1] != "vm:docker-vm" {
		t.Errorf("insertion order lost: %v", names)
	}

	d1, _ := Digest(original)
	d2, _ := Digest(decoded)
	if d1 != d2 || len(d1) != 64 {
		t.Errorf("digests %s %s", d1, d2)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"no environments", `{"gcp_paas_total_from_config": 1}`},
		{"null environments", `{"environments": null}`},
		{"environments not an object", `{"environments": []}`},
		{"key without group", `{"environments": {"native": {"monthly_cost": 1, "resources": []}}}`},
		{"unknown group", `{"environments": {"db:x": {"monthly_cost": 1, "resources": []}}}`},
		{"missing monthly cost", `{"environments": {"vm:a": {"resources": []}}}`},
		{"negative monthly cost", `{"environments": {"vm:a": {"monthly_cost": -1, "resources": []}}}`},
		{"duplicate key", `{"environments": {"vm:a": {"monthly_cost": 1}, "vm:a": {"monthly_cost": 2}}}`},
		{"negative aggregate", `{"environments": {}, "gcp_paas_total_from_config": -4}`},
		{"unknown top-level field", `{"environments": {}, "currency": "EUR"}`},
		{"unknown environment field", `{"environments": {"vm:a": {"monthly_cost": 1, "hourly_cost": 0.1}}}`},
		{"trailing data", `{"environments": {}} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsType(err, errors.TypeInput) {
				t.Errorf("err = %v, want input error", err)
			}
		})
	}
}

func TestDecodeAbsentAggregate(t *testing.T) {
	c, err := Decode([]byte(`{"environments": {"vm:a": {"monthly_cost": 12.5, "resources": []}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.PaaSAggregateCost().Valid {
		t.Error("aggregate should be absent")
	}
	a, _ := c.Variant("vm:a")
	if !a.MonthlyCost.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("vm:a = %s", a.MonthlyCost)
	}
}

func TestDecodeKeepsLargeIntegers(t *testing.T) {
	in := `{
  "environments": {
    "paas:cloud-run": {
      "monthly_cost": 0.00,
      "resources": [
        {"address": "google_cloud_function.fn", "type": "google_cloud_function", "actions": ["create"],
         "attributes": {"details": {"id": 9007199254740993}}}
      ]
    }
  },
  "gcp_paas_total_from_config": null
}`
	c, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(out, []byte("9007199254740993")) {
		t.Errorf("integer precision lost:\n%s", out)
	}
}
