// Package ledger appends deployment records to a Postgres history table.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"iac-pipeline/core/output"
	"iac-pipeline/core/types"
	"iac-pipeline/internal/errors"
	"iac-pipeline/internal/logging"
)

// DB is the subset of *sql.DB the ledger needs
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Postgres records deployments in a single table keyed by deployment id
type Postgres struct {
	db    DB
	table string
}

// Open connects to dsn and prepares the table
func Open(ctx context.Context, dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New(errors.TypeConfig, "ledger requires a DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Config("failed to open ledger database", err)
	}
	l, err := New(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an open connection and creates the table if missing
func New(ctx context.Context, db DB, table string) (*Postgres, error) {
	if table == "" {
		return nil, errors.New(errors.TypeConfig, "ledger table name is empty")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "ledger database unreachable", err)
	}
	l := &Postgres{db: db, table: table}
	if _, err := db.ExecContext(ctx, l.schemaSQL()); err != nil {
		return nil, errors.Internal("failed to create ledger table", err)
	}
	return l, nil
}

func (l *Postgres) schemaSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	deployment_id  TEXT PRIMARY KEY,
	scenario       TEXT NOT NULL,
	chosen         TEXT NOT NULL,
	monthly_cost   NUMERIC(12,2) NOT NULL,
	budget_eur     NUMERIC(12,2) NOT NULL,
	catalog_digest TEXT NOT NULL DEFAULT '',
	document       JSONB NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`, pq.QuoteIdentifier(l.table))
}

func (l *Postgres) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s
	(deployment_id, scenario, chosen, monthly_cost, budget_eur, catalog_digest, document)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (deployment_id) DO UPDATE SET
	scenario = EXCLUDED.scenario,
	chosen = EXCLUDED.chosen,
	monthly_cost = EXCLUDED.monthly_cost,
	budget_eur = EXCLUDED.budget_eur,
	catalog_digest = EXCLUDED.catalog_digest,
	document = EXCLUDED.document,
	recorded_at = now()`, pq.QuoteIdentifier(l.table))
}

// Record upserts one deployment
func (l *Postgres) Record(ctx context.Context, rec *types.DeploymentRecord) error {
	if rec == nil {
		return errors.Input("cannot record a nil deployment")
	}
	document, err := output.EncodeDeployment(rec)
	if err != nil {
		return err
	}
	d := rec.Decision()
	_, err = l.db.ExecContext(ctx, l.insertSQL(),
		rec.DeploymentID(),
		string(d.Scenario),
		d.Chosen(),
		d.ChosenCost.StringFixed(types.CostPlaces),
		d.BudgetEUR.StringFixed(types.CostPlaces),
		rec.CatalogDigest(),
		string(document),
	)
	if err != nil {
		return errors.Internal("failed to record deployment", err).
			WithContext("deployment_id", rec.DeploymentID())
	}

	logging.Named("ledger").Info("deployment recorded",
		zap.String("deployment_id", rec.DeploymentID()),
		zap.String("table", l.table))
	return nil
}

// Close closes the connection
func (l *Postgres) Close() error {
	return l.db.Close()
}
