package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
)

type execCall struct {
	query string
	args  []interface{}
}

type fakeDB struct {
	execs   []execCall
	pingErr error
	execErr error
	closed  bool
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	if f.execErr != nil && len(f.execs) > 1 {
		return nil, f.execErr
	}
	return nil, nil
}

func (f *fakeDB) PingContext(ctx context.Context) error { return f.pingErr }

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func record() *types.DeploymentRecord {
	d := types.Decision{
		Scenario:      types.ScenarioVM,
		ChosenVariant: "vm:native",
		ChosenCost:    decimal.RequireFromString("12.5"),
		CheapestVM:    types.Candidate{Name: "vm:native", MonthlyCost: decimal.RequireFromString("12.5")},
		BudgetEUR:     decimal.NewFromInt(50),
		WithinBudget:  true,
	}
	return types.NewDeploymentRecord("run-1", d, map[string]string{"public_ip": "1.2.3.4"}, "abc")
}

func TestNewCreatesTable(t *testing.T) {
	db := &fakeDB{}
	_, err := New(context.Background(), db, "deploy history")
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].query, `CREATE TABLE IF NOT EXISTS "deploy history"`)
}

func TestNewUnreachable(t *testing.T) {
	_, err := New(context.Background(), &fakeDB{pingErr: fmt.Errorf("refused")}, "deployments")
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = New(context.Background(), &fakeDB{}, "")
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = Open(context.Background(), "", "deployments")
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestRecord(t *testing.T) {
	db := &fakeDB{}
	l, err := New(context.Background(), db, "deployments")
	require.NoError(t, err)

	require.NoError(t, l.Record(context.Background(), record()))
	require.Len(t, db.execs, 2)

	insert := db.execs[1]
	assert.Contains(t, insert.query, `INSERT INTO "deployments"`)
	assert.Contains(t, insert.query, "ON CONFLICT (deployment_id)")
	require.Len(t, insert.args, 7)
	assert.Equal(t, []interface{}{"run-1", "vm", "vm:native", "12.50", "50.00", "abc"}, insert.args[:6])
	assert.Contains(t, insert.args[6], `"message": "Public IP: 1.2.3.4, Monthly cost: 12.50"`)

	require.NoError(t, l.Close())
	assert.True(t, db.closed)
}

func TestRecordFailure(t *testing.T) {
	db := &fakeDB{execErr: fmt.Errorf("disk full")}
	l, err := New(context.Background(), db, "deployments")
	require.NoError(t, err)

	err = l.Record(context.Background(), record())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeInternal))

	assert.True(t, errors.IsType(l.Record(context.Background(), nil), errors.TypeInput))
}
