package tracking

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockplane/migrator/internal/dialect"
	dsqlite "github.com/lockplane/migrator/internal/dialect/sqlite"
	"github.com/lockplane/migrator/internal/migerr"
)

// sqlExecutor adapts a *sql.DB to dialect.Executor for tests, exercising
// the tracking table DDL against a real in-memory SQLite database rather
// than a hand-rolled *sql.Rows fake.
type sqlExecutor struct{ db *sql.DB }

func (e sqlExecutor) Execute(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return e.db.QueryContext(ctx, query, args...)
}
func (e sqlExecutor) ExecuteBatch(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
func (e sqlExecutor) SupportsBatch() bool        { return false }
func (e sqlExecutor) SupportsTransactions() bool { return true }

func newTestTracker(t *testing.T) (*Tracker, sqlExecutor) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	exec := sqlExecutor{db: db}
	tracker := New(dsqlite.New(), exec, "")
	if err := tracker.EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensuring tracking table: %v", err)
	}
	return tracker, exec
}

func TestEnsureTable_IsIdempotent(t *testing.T) {
	tracker, _ := newTestTracker(t)
	if err := tracker.EnsureTable(context.Background()); err != nil {
		t.Fatalf("expected idempotent creation, got: %v", err)
	}
}

func TestMarkApplied_AppearsInAppliedOrder(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	if err := tracker.MarkApplied(ctx, "0000_init", "abc", 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.MarkApplied(ctx, "0001_add_users", "def", 2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	applied, err := tracker.Applied(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(applied) != 2 || applied[0].Name != "0000_init" || applied[1].Name != "0001_add_users" {
		t.Fatalf("expected ordered applied rows, got %+v", applied)
	}
}

func TestRemoveLast_RemovesTailRowsOnly(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	for i, name := range []string{"0000_a", "0001_b", "0002_c"} {
		if err := tracker.MarkApplied(ctx, name, "sum", int64(i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	removed, err := tracker.RemoveLast(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 2 || removed[0].Name != "0001_b" || removed[1].Name != "0002_c" {
		t.Fatalf("expected last two rows removed, got %+v", removed)
	}

	remaining, err := tracker.Applied(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Name != "0000_a" {
		t.Fatalf("expected only 0000_a left, got %+v", remaining)
	}
}

func TestRemoveLast_ClampsToAppliedCount(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	if err := tracker.MarkApplied(ctx, "0000_a", "sum", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err := tracker.RemoveLast(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected removal clamped to 1, got %d", len(removed))
	}
}

func TestCheckDivergence_PrefixIsValid(t *testing.T) {
	applied := []Row{{Name: "m0", Checksum: "a"}, {Name: "m1", Checksum: "b"}}
	journalOrder := []string{"m0", "m1", "m2"}
	checksums := map[string]string{"m0": "a", "m1": "b", "m2": "c"}
	if err := CheckDivergence(applied, journalOrder, checksums); err != nil {
		t.Fatalf("expected valid prefix, got: %v", err)
	}
}

func TestCheckDivergence_ChecksumMismatchIsDivergence(t *testing.T) {
	applied := []Row{{Name: "m0", Checksum: "WRONG"}}
	journalOrder := []string{"m0", "m1"}
	checksums := map[string]string{"m0": "right"}
	err := CheckDivergence(applied, journalOrder, checksums)
	assertDivergence(t, err)
}

func TestCheckDivergence_OutOfOrderIsDivergence(t *testing.T) {
	applied := []Row{{Name: "m1", Checksum: "b"}}
	journalOrder := []string{"m0", "m1"}
	err := CheckDivergence(applied, journalOrder, nil)
	assertDivergence(t, err)
}

func TestCheckDivergence_AppliedLongerThanJournalIsDivergence(t *testing.T) {
	applied := []Row{{Name: "m0"}, {Name: "m1"}}
	journalOrder := []string{"m0"}
	err := CheckDivergence(applied, journalOrder, nil)
	assertDivergence(t, err)
}

func assertDivergence(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a divergence error")
	}
	var migErr *migerr.Error
	if !errors.As(err, &migErr) || migErr.Kind != migerr.KindJournalDivergence {
		t.Fatalf("expected KindJournalDivergence, got %v", err)
	}
}

func TestChecksum_IsDeterministic(t *testing.T) {
	a := Checksum([]byte("CREATE TABLE t (id int);"))
	b := Checksum([]byte("CREATE TABLE t (id int);"))
	if a != b {
		t.Fatalf("expected deterministic checksum, got %s vs %s", a, b)
	}
	c := Checksum([]byte("DROP TABLE t;"))
	if a == c {
		t.Fatal("expected different content to produce different checksum")
	}
}

func TestWithLock_NoOpLockStillRunsFn(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ran := false
	err := tracker.WithLock(context.Background(), "test_lock", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run even without a native advisory lock (sqlite)")
	}
}

func TestWithLock_PropagatesFnError(t *testing.T) {
	tracker, _ := newTestTracker(t)
	wantErr := errors.New("boom")
	err := tracker.WithLock(context.Background(), "test_lock", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
}

var _ dialect.Executor = sqlExecutor{}
