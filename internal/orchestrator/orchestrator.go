// Package orchestrator wires C3-C9 into the three top-level verbs of
// spec.md §4.10: Generate, Apply, Rollback. It is grounded on
// cmd/apply.go's three-mode flow (load-plan vs. generate-from-schema vs.
// auto-detect) collapsed to its generate-then-apply core, and on
// executor.ApplyPlan's BeginTx/loop/Commit-or-Rollback shape, generalised
// to wrap one migration per transaction and record a tracking row only
// after that migration's statements commit.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/differ"
	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/resolver"
	"github.com/lockplane/migrator/internal/snapshot"
	"github.com/lockplane/migrator/internal/sorter"
	"github.com/lockplane/migrator/internal/storage"
	"github.com/lockplane/migrator/internal/tracking"
)

// Orchestrator binds one dialect driver, one Executor, and one on-disk
// Store together for the lifetime of a generate/apply/rollback/status call.
// The current time (Generate's now, Apply's now func) is threaded in by
// the caller (the cmd layer, matching how
// the teacher's cmd package is the only place that touches wall-clock time
// directly) so this package stays deterministic and testable.
type Orchestrator struct {
	Driver   dialect.Driver
	Exec     dialect.Executor
	Store    *storage.Store
	Tracker  *tracking.Tracker
	LockName string
	Resolve  resolver.Func

	// Warn surfaces the §4.10 sequential-execution notice when Exec
	// supports neither a native batch nor a transaction. Nil is a no-op,
	// so tests that never exercise that branch don't need to set it.
	Warn func(message string)
}

// GenerateResult is what Generate returns on success.
type GenerateResult struct {
	Entry   storage.MigrationEntry
	UpSQL   string
	NoOp    bool
}

// Generate diffs current (introspected) against desired (serialized),
// resolves ambiguities, sorts, renders, and writes a new migration file
// through Store, appending it to the journal. It does not touch the
// target database beyond the introspection the caller already performed.
func (o *Orchestrator) Generate(ctx context.Context, current, desired *snapshot.Schema, name string, now int64) (*GenerateResult, error) {
	diffResult := differ.Diff(current, desired)

	ops := diffResult.Operations
	if len(diffResult.AmbiguousChanges) > 0 {
		resolved, err := resolver.Resolve(diffResult.AmbiguousChanges, o.Resolve)
		if err != nil {
			return nil, err
		}
		ops = append(ops, resolved...)
	}

	if len(ops) == 0 {
		return &GenerateResult{NoOp: true}, nil
	}

	ops = sorter.Sort(ops)

	var statements []string
	for _, op := range ops {
		rendered, err := o.Driver.Render(op)
		if err != nil {
			return nil, err
		}
		statements = append(statements, rendered...)
	}

	journal, err := o.Store.GetOrCreateJournal(o.Driver.Dialect())
	if err != nil {
		return nil, err
	}

	idx := len(journal.Entries)
	upSQL := strings.Join(statements, ";\n") + ";\n"
	checksum := tracking.Checksum([]byte(upSQL))

	entry := storage.MigrationEntry{
		Idx:      idx,
		Version:  fmt.Sprintf("%04d", idx),
		Name:     name,
		When:     now,
		Checksum: checksum,
	}

	if err := o.Store.WriteMigration(entry, upSQL, ""); err != nil {
		return nil, err
	}

	journal.Entries = append(journal.Entries, entry)
	if err := o.Store.WriteJournal(journal); err != nil {
		return nil, err
	}

	snapshotJSON, err := json.MarshalIndent(desired, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := o.Store.WriteSnapshot(snapshotJSON); err != nil {
		return nil, err
	}

	return &GenerateResult{Entry: entry, UpSQL: upSQL}, nil
}

// ApplyOptions restricts Apply to a prefix of the pending migrations.
type ApplyOptions struct {
	To string // stop after applying this migration name, inclusive; empty means "all pending"
}

// ApplyResult is Apply's return value.
type ApplyResult struct {
	Applied []storage.MigrationEntry
}

// Apply reads the journal, computes the pending set (journal minus
// already-applied), and — holding the advisory lock for the whole
// operation — executes each pending migration in its own transaction,
// recording a tracking row only after that migration's statements commit.
// A failing migration rolls back and halts; earlier applied migrations
// remain committed and tracked.
func (o *Orchestrator) Apply(ctx context.Context, opts ApplyOptions, now func() int64) (*ApplyResult, error) {
	journal, err := o.Store.GetOrCreateJournal(o.Driver.Dialect())
	if err != nil {
		return nil, err
	}
	if err := o.Tracker.EnsureTable(ctx); err != nil {
		return nil, err
	}

	result := &ApplyResult{}
	err = o.Tracker.WithLock(ctx, o.LockName, func(ctx context.Context) error {
		applied, err := o.Tracker.Applied(ctx)
		if err != nil {
			return err
		}

		journalOrder := make([]string, len(journal.Entries))
		checksums := make(map[string]string, len(journal.Entries))
		for i, e := range journal.Entries {
			journalOrder[i] = e.Name
			checksums[e.Name] = e.Checksum
		}
		if err := tracking.CheckDivergence(applied, journalOrder, checksums); err != nil {
			return err
		}

		pending := journal.Entries[len(applied):]
		for _, entry := range pending {
			data, err := o.Store.ReadMigration(entry)
			if err != nil {
				return err
			}
			if tracking.Checksum(data) != entry.Checksum {
				return migerr.JournalDivergencef("migration %q's file contents no longer match its journal checksum", entry.Name)
			}

			if err := o.applyOne(ctx, entry, string(data), now()); err != nil {
				return err
			}
			result.Applied = append(result.Applied, entry)

			if opts.To != "" && entry.Name == opts.To {
				break
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) applyOne(ctx context.Context, entry storage.MigrationEntry, sql string, appliedAt int64) error {
	statements := splitStatements(sql)

	// §4.10 priority: a native atomic batch when the driver advertises
	// one, otherwise a single wrapping transaction, otherwise sequential
	// statement-by-statement execution with a visible warning since that
	// path leaves a failed migration partially applied.
	if o.Exec.SupportsBatch() || o.Exec.SupportsTransactions() {
		if err := o.Exec.ExecuteBatch(ctx, statements); err != nil {
			return fmt.Errorf("applying migration %q: %w", entry.Name, err)
		}
	} else {
		if o.Warn != nil {
			o.Warn(fmt.Sprintf("%q: driver supports neither a native batch nor transactions; applying statements sequentially without atomicity", entry.Name))
		}
		for _, stmt := range statements {
			if _, err := o.Exec.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("applying migration %q, statement %q: %w", entry.Name, stmt, err)
			}
		}
	}

	if err := o.Tracker.MarkApplied(ctx, entry.Name, entry.Checksum, appliedAt); err != nil {
		return err
	}
	return nil
}

// splitStatements breaks a migration file's SQL into individual
// statements by splitting on `;\n` (migrations are written by Generate as
// `stmt;\n` per line), dropping pieces that are empty or start with `--`,
// and restoring the trailing semicolon on what remains.
func splitStatements(sqlText string) []string {
	var out []string
	for _, raw := range strings.Split(sqlText, ";\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		out = append(out, trimmed+";")
	}
	return out
}

// Rollback removes the last count tracking rows without executing any
// down-SQL (spec §4.10: that is a separate, opt-in operation).
func (o *Orchestrator) Rollback(ctx context.Context, count int) ([]tracking.Row, error) {
	var removed []tracking.Row
	err := o.Tracker.WithLock(ctx, o.LockName, func(ctx context.Context) error {
		var err error
		removed, err = o.Tracker.RemoveLast(ctx, count)
		return err
	})
	return removed, err
}

// Status reports the journal and applied sets side by side so callers can
// compute pending migrations without duplicating Apply's internals.
type Status struct {
	Journal []storage.MigrationEntry
	Applied []tracking.Row
}

func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	journal, err := o.Store.GetOrCreateJournal(o.Driver.Dialect())
	if err != nil {
		return nil, err
	}
	if err := o.Tracker.EnsureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := o.Tracker.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Journal: journal.Entries, Applied: applied}, nil
}
