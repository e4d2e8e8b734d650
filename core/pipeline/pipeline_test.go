package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"iac-pipeline/core/catalog"
	"iac-pipeline/core/output"
	"iac-pipeline/core/provider"
	"iac-pipeline/core/provider/providertest"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

var (
	vmBundle   = types.NewBundle("/src/vm")
	paasBundle = types.NewBundle("/src/paas")
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.NotFound("artifact", key)
	}
	return data, nil
}

func (m *memStore) has(key string) bool {
	_, err := m.Get(context.Background(), key)
	return err == nil
}

type recorder struct {
	records []*types.DeploymentRecord
	err     error
}

func (r *recorder) Record(ctx context.Context, rec *types.DeploymentRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

type notifier struct {
	reports []*output.Report
}

func (n *notifier) Notify(ctx context.Context, report *output.Report) {
	n.reports = append(n.reports, report)
}

type validator struct {
	roots []string
	err   error
}

func (v *validator) Validate(root string, variants []types.VariantName) error {
	v.roots = append(v.roots, root)
	return v.err
}

const natChanges = `[{"address": "google_compute_instance.vm", "type": "google_compute_instance", "name": "vm",
  "change": {"actions": ["create"], "after": {"machine_type": "e2-small", "zone": "europe-west1-b"}}}]`

func newFake() *providertest.Fake {
	fake := providertest.New()
	fake.SetPlan(vmBundle, "native", providertest.Plan("12.3456", natChanges))
	fake.SetPlan(vmBundle, "docker-vm", providertest.Plan("20", `[]`))
	fake.SetPlan(vmBundle, "k8s-vm", providertest.Plan("40.004", `[]`))
	fake.SetPlan(paasBundle, "cloud-run", providertest.Plan("5", `[]`))
	fake.SetAggregate(paasBundle, "38.005")
	fake.SetOutputs(vmBundle, provider.VariantTarget("native"), map[string]string{"public_ip": "34.1.2.3"})
	return fake
}

func options(budget string) Options {
	return Options{
		VMBundle:       vmBundle,
		PaaSBundle:     paasBundle,
		VMVariants:     []types.VariantName{"native", "docker-vm", "k8s-vm"},
		PaaSVariants:   []types.VariantName{"cloud-run"},
		PaaSCostConfig: "infracost.yml",
		Budget:         decimal.RequireFromString(budget),
		Concurrency:    2,
	}
}

type harness struct {
	fake     *providertest.Fake
	store    *memStore
	ledger   *recorder
	notifier *notifier
	pipeline *Pipeline
}

func newHarness(t *testing.T, budget string) *harness {
	t.Helper()
	h := &harness{
		fake:     newFake(),
		store:    newMemStore(),
		ledger:   &recorder{},
		notifier: &notifier{},
	}
	p, err := New(options(budget), Deps{
		Provider: h.fake,
		Store:    h.store,
		Ledger:   h.ledger,
		Notifier: h.notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.pipeline = p
	return h
}

func TestRun(t *testing.T) {
	h := newHarness(t, "50")

	report, err := h.pipeline.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Record == nil {
		t.Fatal("no deployment record")
	}
	if got := report.Record.Message(); got != "Public IP: 34.1.2.3, Monthly cost: 12.35" {
		t.Errorf("Message = %q", got)
	}
	if report.Decision.ChosenVariant != "vm:native" {
		t.Errorf("ChosenVariant = %s", report.Decision.ChosenVariant)
	}

	for _, key := range []string{catalog.Filename, output.DecisionFilename, output.DeploymentFilename} {
		if !h.store.has(key) {
			t.Errorf("%s not persisted", key)
		}
	}

	if calls := h.fake.ApplyCalls(); len(calls) != 1 || calls[0] != "/src/vm/native" {
		t.Errorf("apply calls = %v", calls)
	}
	if len(h.ledger.records) != 1 || h.ledger.records[0].DeploymentID() != "run-1" {
		t.Errorf("ledger = %v", h.ledger.records)
	}
	if len(h.notifier.reports) != 1 || h.notifier.reports[0].Record == nil {
		t.Errorf("notifications = %v", h.notifier.reports)
	}

	var doc output.DeploymentDocument
	data, _ := h.store.Get(context.Background(), output.DeploymentFilename)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("deployment.json: %v", err)
	}
	digest, _ := catalog.Digest(report.Catalog)
	if doc.CatalogDigest != digest {
		t.Errorf("catalog_digest = %s, want %s", doc.CatalogDigest, digest)
	}
	if doc.PaaSTotal == nil || *doc.PaaSTotal != "38.01" {
		t.Errorf("paas_total = %v", doc.PaaSTotal)
	}
}

func TestProvisionUsesPersistedCatalogOnly(t *testing.T) {
	h := newHarness(t, "50")
	costs := `{
  "environments": {
    "vm:docker-vm": {"monthly_cost": 9.00, "resources": []},
    "vm:native": {"monthly_cost": 9.00, "resources": []}
  },
  "gcp_paas_total_from_config": 30.00
}`
	h.store.Put(context.Background(), catalog.Filename, []byte(costs))
	h.fake.SetOutputs(vmBundle, provider.VariantTarget("docker-vm"), map[string]string{"public_ip": "10.0.0.9"})

	report, err := h.pipeline.Provision(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if report.Decision.ChosenVariant != "vm:docker-vm" {
		t.Errorf("tie should go to the first persisted entry, got %s", report.Decision.ChosenVariant)
	}
	if n := len(h.fake.PlanCalls()); n != 0 {
		t.Errorf("provision planned %d variants", n)
	}
}

func TestProvisionOverBudget(t *testing.T) {
	h := newHarness(t, "10")

	report, err := h.pipeline.Run(context.Background(), "run-3")
	if !errors.IsType(err, errors.TypeBudgetExceeded) {
		t.Fatalf("err = %v, want budget exceeded", err)
	}
	if report == nil || report.Decision == nil || report.Decision.Scenario != types.ScenarioNone {
		t.Fatalf("report = %+v", report)
	}
	if !report.Decision.ChosenCost.Equal(decimal.RequireFromString("12.35")) {
		t.Errorf("ChosenCost = %s", report.Decision.ChosenCost)
	}
	if n := len(h.fake.ApplyCalls()); n != 0 {
		t.Errorf("apply called %d times", n)
	}
	if h.store.has(output.DeploymentFilename) {
		t.Error("deployment.json written for an over-budget decision")
	}
	if !h.store.has(output.DecisionFilename) {
		t.Error("decision.json not written")
	}
	if len(h.notifier.reports) != 1 || h.notifier.reports[0].Record != nil {
		t.Errorf("notifications = %v", h.notifier.reports)
	}
	if len(h.ledger.records) != 0 {
		t.Error("over-budget decision recorded in ledger")
	}
}

func TestCatalogFailurePersistsNothing(t *testing.T) {
	h := newHarness(t, "50")
	h.fake.PlanErrs[vmBundle.VariantDir("k8s-vm")] = fmt.Errorf("quota exceeded")

	_, err := h.pipeline.Run(context.Background(), "run-4")
	if !errors.IsType(err, errors.TypeProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if h.store.has(catalog.Filename) {
		t.Error("partial catalog persisted")
	}
	if n := len(h.fake.ApplyCalls()); n != 0 {
		t.Errorf("apply called %d times", n)
	}
}

func TestProvisionWithoutCatalog(t *testing.T) {
	h := newHarness(t, "50")
	_, err := h.pipeline.Provision(context.Background(), "run-5")
	if !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestProvisionApplyFailure(t *testing.T) {
	h := newHarness(t, "50")
	if _, err := h.pipeline.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	h.fake.ApplyErr = fmt.Errorf("quota exceeded")

	report, err := h.pipeline.Provision(context.Background(), "run-6")
	if !errors.IsType(err, errors.TypeProvision) {
		t.Fatalf("err = %v, want provision error", err)
	}
	if report.Record != nil {
		t.Error("record returned for a failed apply")
	}
	if h.store.has(output.DeploymentFilename) {
		t.Error("deployment.json written for a failed apply")
	}
	if len(h.fake.ApplyCalls()) != 1 {
		t.Errorf("apply calls = %v", h.fake.ApplyCalls())
	}
}

func TestLedgerFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, "50")
	h.ledger.err = fmt.Errorf("connection refused")

	if _, err := h.pipeline.Run(context.Background(), "run-7"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !h.store.has(output.DeploymentFilename) {
		t.Error("deployment.json not written")
	}
}

func TestSelect(t *testing.T) {
	h := newHarness(t, "50")
	if _, err := h.pipeline.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}

	report, err := h.pipeline.Select(context.Background())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if report.Decision.Scenario != types.ScenarioVM || report.Record != nil {
		t.Errorf("report = %+v", report)
	}

	data, _ := h.store.Get(context.Background(), output.DecisionFilename)
	if !strings.Contains(string(data), `"chosen": "vm:native"`) {
		t.Errorf("decision.json = %s", data)
	}
	if n := len(h.fake.ApplyCalls()); n != 0 {
		t.Errorf("select applied %d times", n)
	}
}

func TestValidatorRunsBeforeProvider(t *testing.T) {
	v := &validator{err: errors.NotFound("variant directory", "/src/vm/native")}
	fake := newFake()
	p, err := New(options("50"), Deps{Provider: fake, Store: newMemStore(), Validator: v})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Catalog(context.Background())
	if !errors.IsType(err, errors.TypeNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(fake.PlanCalls()) != 0 || len(fake.AggregateCalls()) != 0 {
		t.Error("provider called after failed validation")
	}

	v.err = nil
	if _, err := p.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(v.roots) != 3 || v.roots[1] != "/src/vm" || v.roots[2] != "/src/paas" {
		t.Errorf("validated roots = %v", v.roots)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		deps   Deps
		errTyp errors.Type
	}{
		{name: "no provider", opts: options("50"), deps: Deps{Store: newMemStore()}, errTyp: errors.TypeConfig},
		{name: "no store", opts: options("50"), deps: Deps{Provider: providertest.New()}, errTyp: errors.TypeConfig},
		{name: "negative budget", opts: options("-1"), deps: Deps{Provider: providertest.New(), Store: newMemStore()}, errTyp: errors.TypeInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, tt.deps)
			if !errors.IsType(err, tt.errTyp) {
				t.Errorf("err = %v, want %s", err, tt.errTyp)
			}
		})
	}

	if _, err := (&Pipeline{}).Provision(context.Background(), ""); !errors.IsType(err, errors.TypeInput) {
		t.Errorf("empty deployment id: %v", err)
	}
}
