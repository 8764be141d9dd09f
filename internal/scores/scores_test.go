package scores

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ai-vietnam/minda/internal/log"
)

func quietLogger() *slog.Logger {
	return log.NewNop()
}

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.json")
	l, err := NewLedger(path, quietLogger())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l, path
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"Good", Good, false},
		{"good", Good, false},
		{"  Normal ", Normal, false},
		{"POOR", Poor, false},
		{"Average", Average, false},
		{"Kém", Poor, false},
		{"Trung bình", Average, false},
		{"Bình thường", Normal, false},
		{"Tốt", Good, false},
		{"excellent", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCategory(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCategory(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLedger_AppendAndEntries(t *testing.T) {
	l, _ := newTestLedger(t)
	l.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	entry, err := l.Append("an", Normal, "ổn định, ngủ tốt", "3")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("entry ID is empty")
	}
	if entry.Time != "2025-03-14 09:26:53" {
		t.Errorf("entry time = %q", entry.Time)
	}

	got, err := l.Entries("an")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	if got[0].Score != Normal || got[0].Content != "ổn định, ngủ tốt" {
		t.Errorf("stored entry = %+v", got[0])
	}
}

func TestLedger_AppendOnlyPreservesPriorEntries(t *testing.T) {
	l, path := newTestLedger(t)

	if _, err := l.Append("an", Poor, "first", "1"); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	before, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}

	if _, err := l.Append("an", Good, "second", "2"); err != nil {
		t.Fatalf("second Append: %v", err)
	}
	after, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}

	if len(after) != 2 {
		t.Fatalf("ledger = %d entries, want 2", len(after))
	}
	if after[0] != before[0] {
		t.Errorf("prior entry changed: before %+v, after %+v", before[0], after[0])
	}

	// The legacy wire field names must survive the round trip.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading ledger file: %v", err)
	}
	for _, field := range []string{`"usename"`, `"Time"`, `"Score"`, `"Content"`, `"Total guess"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("ledger file missing field %s", field)
		}
	}
}

func TestLedger_EntriesFiltersByUser(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.Append("an", Good, "a", "1"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append("binh", Average, "b", "1"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append("an", Normal, "c", "2"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := l.Entries("an")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("an entries = %d, want 2", len(got))
	}
	if got[0].Content != "a" || got[1].Content != "c" {
		t.Errorf("entries out of order: %+v", got)
	}
}

func TestLedger_RejectsUnknownCategory(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.Append("an", Category("Excellent"), "x", "1"); err == nil {
		t.Fatal("expected error for unknown category")
	}
	all, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected append still wrote %d entries", len(all))
	}
}

func TestLedger_CorruptFileRefusesAppend(t *testing.T) {
	l, path := newTestLedger(t)
	if err := os.WriteFile(path, []byte("[{broken"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	if _, err := l.Append("an", Good, "x", "1"); err == nil {
		t.Fatal("expected error appending over corrupt ledger")
	}
}

func TestLedger_UniqueIDs(t *testing.T) {
	l, _ := newTestLedger(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		e, err := l.Append("an", Good, "x", "1")
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate entry ID %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestEntry_JSONShape(t *testing.T) {
	e := Entry{ID: "x", Username: "an", Time: "2025-01-01 00:00:00", Score: Good, Content: "c", TotalGuess: "4"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw["usename"] != "an" {
		t.Errorf("usename field = %v", raw["usename"])
	}
	if raw["Total guess"] != "4" {
		t.Errorf("Total guess field = %v", raw["Total guess"])
	}
}
