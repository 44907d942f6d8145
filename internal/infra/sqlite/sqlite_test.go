package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.SetState("k", "v"); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()

	got, _ := db.GetState("k")
	if got != "v" {
		t.Errorf("after reopen GetState() = %q, want %q", got, "v")
	}
}

// ─── State ──────────────────────────────────────────────────────────────────

func TestState_Upsert(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetState("key", "v1"); err != nil {
		t.Fatalf("first SetState() error: %v", err)
	}
	if err := db.SetState("key", "v2"); err != nil {
		t.Fatalf("second SetState() error: %v", err)
	}

	got, err := db.GetState("key")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if got != "v2" {
		t.Errorf("GetState() = %q, want %q", got, "v2")
	}
}

func TestState_NotFound(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetState("missing")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if got != "" {
		t.Errorf("GetState(missing) = %q, want empty", got)
	}
}

func TestState_Delete(t *testing.T) {
	db := newTestDB(t)
	db.SetState("key", "v")

	if err := db.DeleteState("key"); err != nil {
		t.Fatalf("DeleteState() error: %v", err)
	}
	if err := db.DeleteState("key"); err != nil {
		t.Fatalf("second DeleteState() error: %v", err)
	}
	if got, _ := db.GetState("key"); got != "" {
		t.Errorf("GetState() after delete = %q", got)
	}
}

// ─── Cooldown Persistence ───────────────────────────────────────────────────

func TestLastTrigger_Empty(t *testing.T) {
	db := newTestDB(t)

	_, ok, err := db.LoadLastTrigger()
	if err != nil {
		t.Fatalf("LoadLastTrigger() error: %v", err)
	}
	if ok {
		t.Error("fresh database should have no last trigger")
	}
}

func TestLastTrigger_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := time.Date(2026, 3, 2, 5, 0, 30, 0, time.UTC)

	if err := db.SaveLastTrigger(&want); err != nil {
		t.Fatalf("SaveLastTrigger() error: %v", err)
	}
	got, ok, err := db.LoadLastTrigger()
	if err != nil || !ok {
		t.Fatalf("LoadLastTrigger() = %v, %v, %v", got, ok, err)
	}
	if !got.Equal(want) {
		t.Errorf("LoadLastTrigger() = %v, want %v", got, want)
	}
}

func TestLastTrigger_Clear(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	db.SaveLastTrigger(&now)

	if err := db.SaveLastTrigger(nil); err != nil {
		t.Fatalf("SaveLastTrigger(nil) error: %v", err)
	}
	if _, ok, _ := db.LoadLastTrigger(); ok {
		t.Error("cleared trigger should not load")
	}
}

func TestLastTrigger_Corrupt(t *testing.T) {
	db := newTestDB(t)
	db.SetState(keyLastTrigger, "not-a-time")

	if _, _, err := db.LoadLastTrigger(); err == nil {
		t.Error("corrupt value should return an error")
	}
}
