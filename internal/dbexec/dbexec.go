// Package dbexec adapts a standard library *sql.DB to dialect.Executor,
// the single injection point every dialect.Driver and the tracking/
// orchestrator packages operate through. Grounded on internal/executor's
// GetSQLDriverName/sql.Open pairing, generalised from one ApplyPlan call
// into a long-lived handle the CLI opens once per command.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockplane/migrator/internal/dialect"
)

// DriverName returns the database/sql driver name registered for a given
// dialect, i.e. the string to pass to sql.Open — distinct from
// dialect.Driver.DriverName(), which names the migrator-side driver
// implementation rather than the database/sql registration.
func DriverName(d dialect.Name) (string, error) {
	switch d {
	case dialect.PostgreSQL:
		return "postgres", nil
	case dialect.MySQL:
		return "mysql", nil
	case dialect.SQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", d)
	}
}

// Open opens a *sql.DB for dsn under the database/sql driver registered
// for d and wraps it as a dialect.Executor.
func Open(d dialect.Name, dsn string) (*Executor, error) {
	driverName, err := DriverName(d)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &Executor{DB: db}, nil
}

// Executor wraps *sql.DB as a dialect.Executor. None of the supported
// database/sql drivers expose a native multi-statement batch call, so
// SupportsBatch is always false; ExecuteBatch instead runs the statements one
// at a time inside a single transaction it opens, commits, or rolls back on
// the first failure.
type Executor struct {
	DB *sql.DB
}

func (e *Executor) Execute(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return e.DB.QueryContext(ctx, query, args...)
}

func (e *Executor) ExecuteBatch(ctx context.Context, statements []string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (e *Executor) SupportsBatch() bool        { return false }
func (e *Executor) SupportsTransactions() bool { return true }

func (e *Executor) Close() error { return e.DB.Close() }

var _ dialect.Executor = (*Executor)(nil)
