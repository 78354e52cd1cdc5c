package journal

import (
	"path/filepath"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	if _, err := j.Record("case_start", OutcomeOK, "0001-demo"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := j.Record("pressure_log", OutcomeOK, "PE-0001"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := j.Record("case_close", OutcomeError, "case not found"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Most recent first.
	if entries[0].Tool != "case_close" || entries[0].Outcome != OutcomeError {
		t.Errorf("unexpected newest entry: %+v", entries[0])
	}
	if entries[0].ID == "" || entries[0].CreatedAt == "" {
		t.Errorf("entry missing id or timestamp: %+v", entries[0])
	}
}

func TestRecentLimit(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	for i := 0; i < 5; i++ {
		if _, err := j.Record("foundation_list", OutcomeOK, ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestCountByTool(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	for i := 0; i < 3; i++ {
		if _, err := j.Record("pressure_log", OutcomeOK, ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if _, err := j.Record("case_start", OutcomeOK, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	counts, err := j.CountByTool()
	if err != nil {
		t.Fatalf("CountByTool: %v", err)
	}
	if counts["pressure_log"] != 3 || counts["case_start"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Record("hindsight_init", OutcomeOK, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	entries, err := j2.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", len(entries))
	}
	if entries[0].Tool != "hindsight_init" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	if _, err := j.Record("case_status", OutcomeOK, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
}
