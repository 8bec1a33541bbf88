package credstore

import (
	"os"
	"path/filepath"
	"testing"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	if _, ok, err := kv.Get(KeyAuthToken); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := kv.Set(KeyAuthToken, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(KeyUserEmail, "a@b.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(KeyAuthToken, "def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := kv.Get(KeyAuthToken)
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := kv.Delete(KeyAuthToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get(KeyAuthToken); ok {
		t.Fatalf("expected token deleted")
	}
	if v, ok, _ := kv.Get(KeyUserEmail); !ok || v != "a@b.com" {
		t.Fatalf("delete must not touch other keys, got %q ok=%v", v, ok)
	}
	if err := kv.Delete(KeyAuthToken, KeyUserEmail); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
}

func TestFile_KV(t *testing.T) {
	exerciseKV(t, NewFile(filepath.Join(t.TempDir(), "nested", fileName)))
}

func TestSQLite_KV(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), sqliteName))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseKV(t, s)
}

func TestMemory_KV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestFile_OwnerOnlyPermissions(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, fileName))
	if err := f.Set(KeyAuthToken, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	fi, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), fileName)
	if err := NewFile(path).Set(KeyUserEmail, "a@b.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := NewFile(path).Get(KeyUserEmail)
	if err != nil || !ok || v != "a@b.com" {
		t.Fatalf("reopen: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	kv, err := Open("", dir)
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := kv.(*File); !ok {
		t.Fatalf("expected *File, got %T", kv)
	}
	kv, err = Open("sqlite", dir)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	s, ok := kv.(*SQLite)
	if !ok {
		t.Fatalf("expected *SQLite, got %T", kv)
	}
	s.Close()
	if _, err := Open("etcd", dir); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestDir_EnvOverride(t *testing.T) {
	want := t.TempDir()
	t.Setenv("TADA_CONFIG_DIR", want)
	got, err := Dir()
	if err != nil || got != want {
		t.Fatalf("Dir: got %q err=%v", got, err)
	}
}

func TestStripBearer(t *testing.T) {
	for in, want := range map[string]string{
		"abc":          "abc",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		" abc ":        "abc",
	} {
		if got := StripBearer(in); got != want {
			t.Fatalf("StripBearer(%q) = %q, want %q", in, got, want)
		}
	}
}
