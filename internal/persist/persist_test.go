package persist

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/lootgo/server/internal/loot"
)

func readAudit(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	var out []AuditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestAuditWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewAuditWriter(dir, "pickup")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(AuditEntry{Account: "a", Accepted: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(AuditEntry{Account: "b", Accepted: 5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(AuditEntry{Account: "c", Overflow: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readAudit(t, filepath.Join(dir, "pickup-2026-03-01-10.jsonl.zst"))
	if len(first) != 2 || first[0].Account != "a" || first[1].Accepted != 5 {
		t.Fatalf("unexpected first hour: %+v", first)
	}
	second := readAudit(t, filepath.Join(dir, "pickup-2026-03-01-11.jsonl.zst"))
	if len(second) != 1 || !second[0].Overflow {
		t.Fatalf("unexpected second hour: %+v", second)
	}
}

func TestAuditWriterAppendsAfterClose(t *testing.T) {
	dir := t.TempDir()
	w := NewAuditWriter(dir, "pickup")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.Write(AuditEntry{Account: "a"})
	w.Close()
	w.Write(AuditEntry{Account: "b"})
	w.Close()

	got := readAudit(t, filepath.Join(dir, "pickup-2026-03-01-12.jsonl.zst"))
	if len(got) != 2 || got[1].Account != "b" {
		t.Fatalf("expected two frames concatenated, got %+v", got)
	}
}

func TestRowsFromSlots(t *testing.T) {
	slots := []loot.ItemStack{
		{Type: "a", Count: 3},
		{},
		{Type: "b", Count: 1, Meta: "m"},
	}
	rows := RowsFromSlots(slots)
	if len(rows) != 2 || rows[0].Slot != 0 || rows[1].Slot != 2 || rows[1].Meta != "m" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !ValidatePassword(h, "secret") || ValidatePassword(h, "wrong") {
		t.Fatalf("bcrypt validation mismatch")
	}
}
