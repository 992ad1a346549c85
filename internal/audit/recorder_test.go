package audit

import (
	"path/filepath"
	"testing"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestRecordConfigChange(t *testing.T) {
	rec := testRecorder(t)

	trace, err := rec.RecordConfigChange("9999", "group.g1.user", "settings.message_rate_limit", 20, 5)
	if err != nil {
		t.Fatalf("RecordConfigChange: %v", err)
	}
	if trace == "" {
		t.Fatalf("empty trace id")
	}

	entries, err := rec.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.TraceID != trace || e.Action != "config_set" || e.Actor != "9999" {
		t.Fatalf("entry = %+v", e)
	}
	if e.KeyPath != "settings.message_rate_limit" || e.OldValue != "20" || e.NewValue != "5" {
		t.Fatalf("values = %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("timestamp not recorded")
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	rec := testRecorder(t)
	for _, action := range []string{"grant_role", "revoke_role", "blacklist_in_group"} {
		if _, err := rec.RecordPermissionChange("9999", "u1", action, "detail"); err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}

	entries, err := rec.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit ignored: %d entries", len(entries))
	}
	if entries[0].Action != "blacklist_in_group" {
		t.Fatalf("newest first expected, got %q", entries[0].Action)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	rec, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := rec.RecordPermissionChange("9999", "u1", "grant_role", "private_user"); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Close()

	rec, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rec.Close()
	entries, err := rec.Recent(10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries after reopen = %d, %v", len(entries), err)
	}
}
