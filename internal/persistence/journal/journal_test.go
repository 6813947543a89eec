package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"strands.run/internal/control"
)

func TestJournal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	if err := j.WriteCommand(control.CommandLogEntry{TS: 1.5, Conn: "c1", Cmd: "move"}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if err := j.WriteCommand(control.CommandLogEntry{TS: 2.0, Conn: "c1", Err: "E_PROTO_BAD_JSON", Line: "not json"}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "journal", "commands-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one commands file, got %v (err=%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var entries []control.CommandLogEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e control.CommandLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Cmd != "move" || entries[1].Err != "E_PROTO_BAD_JSON" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
