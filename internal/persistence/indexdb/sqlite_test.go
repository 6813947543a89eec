package indexdb

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// settle waits for the async writer to drain its queue.
func settle(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("indexer did not settle in time")
}

func TestSQLiteIndex_CommandCounts(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordCommand("move")
	idx.RecordCommand("move")
	idx.RecordCommand("jump")

	settle(t, func() bool {
		n, err := idx.CommandCount("move")
		return err == nil && n == 2
	})
	n, err := idx.CommandCount("jump")
	if err != nil || n != 1 {
		t.Fatalf("jump count = %d err=%v, want 1", n, err)
	}
	n, err = idx.CommandCount("sprint")
	if err != nil || n != 0 {
		t.Fatalf("sprint count = %d err=%v, want 0 for unseen kind", n, err)
	}
}

func TestSQLiteIndex_SessionLifecycle(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordSessionOpen("c1", "127.0.0.1:50000")
	idx.RecordSessionOpen("c2", "127.0.0.1:50001")
	idx.RecordSessionClose("c1")

	settle(t, func() bool {
		total, open, err := idx.SessionCount()
		return err == nil && total == 2 && open == 1
	})
}

func TestSQLiteIndex_CloseIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// Records after close are dropped, not panics.
	idx.RecordCommand("move")
}
