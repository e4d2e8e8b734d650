package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestKeyAndSplitKey(t *testing.T) {
	tests := []struct {
		key       VariantName
		wantGroup Group
		wantName  VariantName
		wantOK    bool
	}{
		{"vm:native", GroupVM, "native", true},
		{"paas:cloud-run", GroupPaaS, "cloud-run", true},
		{"vm:", "", "", false},
		{"native", "", "", false},
		{"gke:autopilot", "", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			g, n, ok := SplitKey(tt.key)
			if g != tt.wantGroup || n != tt.wantName || ok != tt.wantOK {
				t.Errorf("SplitKey(%q) = (%q, %q, %v)", tt.key, g, n, ok)
			}
		})
	}

	if got := Key(GroupVM, "docker-vm"); got != "vm:docker-vm" {
		t.Errorf("Key = %q", got)
	}
}

func TestNewCostCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCostCatalog([]VariantCost{
		{Name: "vm:a", MonthlyCost: decimal.NewFromInt(1)},
		{Name: "vm:a", MonthlyCost: decimal.NewFromInt(2)},
	}, decimal.NullDecimal{})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestNewCostCatalogRejectsNegative(t *testing.T) {
	_, err := NewCostCatalog([]VariantCost{
		{Name: "vm:a", MonthlyCost: decimal.NewFromInt(-1)},
	}, decimal.NullDecimal{})
	if err == nil {
		t.Fatal("expected negative cost error")
	}
}

func TestCostCatalogIsolatedFromCallerMutation(t *testing.T) {
	resources := []ResourceChange{{
		Address:    "google_compute_instance.vm",
		Type:       "google_compute_instance",
		Actions:    []string{ActionCreate},
		Attributes: map[string]interface{}{"machine_type": "e2-small"},
	}}
	c, err := NewCostCatalog([]VariantCost{
		{Name: "vm:native", MonthlyCost: decimal.NewFromInt(10), Resources: resources},
	}, decimal.NullDecimal{})
	if err != nil {
		t.Fatal(err)
	}

	resources[0].Attributes["machine_type"] = "n2-standard-64"
	got, _ := c.Variant("vm:native")
	if got.Resources[0].Attributes["machine_type"] != "e2-small" {
		t.Errorf("catalog changed through caller slice")
	}

	got.Resources[0].Actions[0] = ActionDelete
	again, _ := c.Variant("vm:native")
	if again.Resources[0].Actions[0] != ActionCreate {
		t.Errorf("catalog changed through returned copy")
	}
}

func TestInGroupKeepsOrder(t *testing.T) {
	c, err := NewCostCatalog([]VariantCost{
		{Name: "vm:native"},
		{Name: "paas:cloud-run"},
		{Name: "vm:k8s-vm"},
	}, decimal.NullDecimal{})
	if err != nil {
		t.Fatal(err)
	}
	vms := c.InGroup(GroupVM)
	if len(vms) != 2 || vms[0].Name != "vm:native" || vms[1].Name != "vm:k8s-vm" {
		t.Errorf("InGroup(vm) = %+v", vms)
	}
}

func TestDeploymentRecordOwnsItsData(t *testing.T) {
	outputs := map[string]string{"public_ip": "34.1.2.3"}
	d := Decision{Scenario: ScenarioVM, ChosenVariant: "vm:native", ChosenCost: decimal.RequireFromString("40")}
	rec := NewDeploymentRecord("run-1", d, outputs, "abc")

	outputs["public_ip"] = "changed"
	if ip, _ := rec.Output("public_ip"); ip != "34.1.2.3" {
		t.Errorf("record output changed to %q", ip)
	}
	if rec.Message() != "Public IP: 34.1.2.3, Monthly cost: 40.00" {
		t.Errorf("Message = %q", rec.Message())
	}
}

func TestDecisionChosen(t *testing.T) {
	tests := []struct {
		d    Decision
		want string
	}{
		{Decision{Scenario: ScenarioVM, ChosenVariant: "vm:a"}, "vm:a"},
		{Decision{Scenario: ScenarioPaaS}, "paas"},
		{Decision{Scenario: ScenarioNone}, "none"},
	}
	for _, tt := range tests {
		if got := tt.d.Chosen(); got != tt.want {
			t.Errorf("Chosen() = %q, want %q", got, tt.want)
		}
	}
}
