// Package tracking implements the database-resident applied-migration
// record and the cross-process advisory lock that guards mutation of it
// (spec §4.9). Checksumming follows schema_hash.go's canonicalise-then-hash
// idiom; the lock/commit loop follows internal/executor.ApplyPlan's
// BeginTx/loop/Commit-or-Rollback shape, generalised from "one plan in one
// transaction" to "one migration per transaction, loop over pending ones"
// (the per-migration loop itself lives in internal/orchestrator; this
// package only owns the table and the lock).
package tracking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
)

// DefaultTableName is used when the caller does not configure one.
const DefaultTableName = "_viborm_migrations"

// Row is one applied-migration record as stored in the tracking table.
type Row struct {
	ID        int64
	Name      string
	Checksum  string
	AppliedAt int64 // unix millis
}

// Tracker wraps a Driver/Executor pair bound to a single tracking table
// name, so callers never have to thread the table name through every call.
type Tracker struct {
	driver    dialect.Driver
	exec      dialect.Executor
	tableName string
}

func New(driver dialect.Driver, exec dialect.Executor, tableName string) *Tracker {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &Tracker{driver: driver, exec: exec, tableName: tableName}
}

// EnsureTable creates the tracking table if it does not already exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	ddl := t.driver.TrackingTableDDL(t.tableName)
	_, err := t.exec.Execute(ctx, ddl)
	if err != nil {
		return fmt.Errorf("creating tracking table: %w", err)
	}
	return nil
}

// Applied returns every tracking row, ordered by id (the order migrations
// were applied in).
func (t *Tracker) Applied(ctx context.Context) ([]Row, error) {
	escaped, err := t.driver.EscapeIdentifier(t.tableName)
	if err != nil {
		return nil, err
	}
	rows, err := t.exec.Execute(ctx, fmt.Sprintf("SELECT id, name, checksum, applied_at FROM %s ORDER BY id", escaped))
	if err != nil {
		return nil, fmt.Errorf("reading tracking table: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Name, &r.Checksum, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning tracking row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkApplied inserts a tracking row for a migration that just committed.
// It runs as its own statement after the migration's statements have
// committed, not inside their transaction: a migration is never marked
// applied before its statements ran, but a failure between that commit and
// this insert leaves the migration's changes in place with no tracking row.
func (t *Tracker) MarkApplied(ctx context.Context, name, checksum string, appliedAtMillis int64) error {
	escaped, err := t.driver.EscapeIdentifier(t.tableName)
	if err != nil {
		return err
	}
	_, err = t.exec.Execute(ctx,
		fmt.Sprintf("INSERT INTO %s (name, checksum, applied_at) VALUES (?, ?, ?)", escaped),
		name, checksum, appliedAtMillis)
	if err != nil {
		return fmt.Errorf("marking migration %q applied: %w", name, err)
	}
	return nil
}

// RemoveLast deletes the last count tracking rows by id descending, for
// rollback. It does not execute any down-SQL — that is the orchestrator's
// separate, opt-in concern.
func (t *Tracker) RemoveLast(ctx context.Context, count int) ([]Row, error) {
	applied, err := t.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if count > len(applied) {
		count = len(applied)
	}
	toRemove := applied[len(applied)-count:]

	escaped, err := t.driver.EscapeIdentifier(t.tableName)
	if err != nil {
		return nil, err
	}
	for _, row := range toRemove {
		if _, err := t.exec.Execute(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", escaped), row.ID); err != nil {
			return nil, fmt.Errorf("removing tracking row %d (%s): %w", row.ID, row.Name, err)
		}
	}
	return toRemove, nil
}

// CheckDivergence verifies the applied-set-is-strict-prefix-of-journal
// invariant of spec §4.9: every applied name must appear in journalOrder at
// the same position, with a matching checksum, and nothing applied may be
// missing from the journal. A violation halts all further operations.
func CheckDivergence(applied []Row, journalOrder []string, journalChecksum map[string]string) error {
	if len(applied) > len(journalOrder) {
		return migerr.JournalDivergencef("applied set has %d entries but the journal only has %d", len(applied), len(journalOrder))
	}
	for i, row := range applied {
		if row.Name != journalOrder[i] {
			return migerr.JournalDivergencef("applied entry %d is %q but the journal at that position is %q", i, row.Name, journalOrder[i])
		}
		if want, ok := journalChecksum[row.Name]; ok && want != row.Checksum {
			return migerr.JournalDivergencef("checksum mismatch for applied migration %q: tracking table has %s, journal has %s", row.Name, row.Checksum, want)
		}
	}
	return nil
}

// Checksum hashes a migration file's contents deterministically (spec
// §4.9: "a deterministic hash of the migration file contents").
func Checksum(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}

// WithLock acquires the dialect's advisory lock (when it has one), runs fn,
// then releases it. Acquire failure raises MigrationLockFailedError;
// release failure is swallowed, matching spec §4.9 — the connection
// closing eventually releases the lock regardless. Dialects without an
// advisory lock (SQLite) run fn directly: callers serialise through the
// exclusive transaction around the plan instead.
func (t *Tracker) WithLock(ctx context.Context, lockName string, fn func(ctx context.Context) error) error {
	acquire, release, ok := t.driver.LockSQL(lockName)
	if !ok {
		return fn(ctx)
	}
	if _, err := t.exec.Execute(ctx, acquire); err != nil {
		return migerr.MigrationLockFailedf("failed to acquire migration lock %q: %v", lockName, err)
	}
	defer func() {
		_, _ = t.exec.Execute(ctx, release)
	}()
	return fn(ctx)
}
