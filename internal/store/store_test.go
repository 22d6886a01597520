package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "kioskpad.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_GetSetItem(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.GetItem("gamepads/pad"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.SetItem("gamepads/pad", `{"button_0":"A"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetItem("gamepads/pad", `{"button_1":"A"}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, ok, err := s.GetItem("gamepads/pad")
	if err != nil || !ok {
		t.Fatalf("expected stored value, got ok=%v err=%v", ok, err)
	}
	if v != `{"button_1":"A"}` {
		t.Fatalf("expected overwritten value, got %s", v)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kioskpad.db")
	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetItem("gamepads/a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetItem("other", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	keys, err := s.Keys("gamepads/")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "gamepads/a" {
		t.Fatalf("expected [gamepads/a], got %v", keys)
	}
}

func TestSQLite_Closed(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op, got %v", err)
	}
	if err := s.SetItem("k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := s.GetItem("k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	if _, ok, _ := m.GetItem("k"); ok {
		t.Fatalf("expected missing key")
	}
	m.SetItem("k", "v")
	if v, ok, _ := m.GetItem("k"); !ok || v != "v" {
		t.Fatalf("expected v, got %q ok=%v", v, ok)
	}
}
