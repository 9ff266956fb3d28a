package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	target := filepath.Join(dirB, "svc.ts")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewPathResolver([]string{dirA, dirB})
	got, err := r.Resolve("svc.ts")
	if err != nil {
		t.Fatal(err)
	}
	if got != target {
		t.Errorf("got %s, want %s", got, target)
	}

	if _, err := r.Resolve("missing.ts"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestReadTextRejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 'a'}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadText(path); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestReadTextKeepsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.txt")
	if err := os.WriteFile(path, []byte("\ufeffhello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "\ufeffhello" {
		t.Errorf("got %q", got)
	}
}

func TestWriteAtomicKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(path, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, "new"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("got %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.txt")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	fileHash, err := GetFileSHA256(path)
	if err != nil {
		t.Fatal(err)
	}
	if fileHash != HashText("abc") {
		t.Errorf("file hash %s != text hash %s", fileHash, HashText("abc"))
	}
	if HashText("abc") != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected sha256 %s", HashText("abc"))
	}
}
