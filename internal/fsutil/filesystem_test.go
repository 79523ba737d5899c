package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Both implementations must satisfy the interface.
var (
	_ FileSystem = OSFileSystem{}
	_ FileSystem = (*MemoryFileSystem)(nil)
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	osfs := OSFileSystem{}
	dir := t.TempDir()

	exportDir := filepath.Join(dir, "exports", "cam-01")
	if err := osfs.MkdirAll(exportDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if !osfs.Exists(exportDir) {
		t.Errorf("Exists(%q) = false after MkdirAll", exportDir)
	}

	path := filepath.Join(exportDir, "cam-01.boris.tsv")
	content := []byte("43.000\t\tglobal_deviation\t\tfoo\n")
	if err := osfs.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("ReadFile() = %q, want %q", got, content)
	}

	f, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	streamed, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(streamed) != string(content) {
		t.Errorf("Open()+ReadAll() = %q, want %q", streamed, content)
	}

	if osfs.Exists(filepath.Join(dir, "no-such-file")) {
		t.Error("Exists() = true for a missing file")
	}
}

func TestOSFileSystemOpenMissing(t *testing.T) {
	osfs := OSFileSystem{}
	if _, err := osfs.Open(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(absent) error = %v, want os.ErrNotExist", err)
	}
}

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	mfs := NewMemoryFileSystem()

	content := []byte("0.500000\n-0.900000\n")
	if err := mfs.WriteFile("out/session.valence.txt", content, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := mfs.ReadFile("out/session.valence.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("ReadFile() = %q, want %q", got, content)
	}
	if !mfs.Exists("out/session.valence.txt") {
		t.Error("Exists() = false for a written file")
	}
}

func TestMemoryFileSystemMissingFile(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.ReadFile("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want fs.ErrNotExist", err)
	}
	if _, err := mfs.Open("missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want fs.ErrNotExist", err)
	}
	if mfs.Exists("missing.txt") {
		t.Error("Exists(missing) = true")
	}
}

func TestMemoryFileSystemCopiesData(t *testing.T) {
	mfs := NewMemoryFileSystem()

	buf := []byte("original")
	if err := mfs.WriteFile("f.txt", buf, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	copy(buf, "mutated!")

	got, err := mfs.ReadFile("f.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "original" {
		t.Errorf("stored data changed with the caller's buffer: %q", got)
	}

	// The returned slice must be a copy as well.
	got[0] = 'X'
	again, err := mfs.ReadFile("f.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(again) != "original" {
		t.Errorf("stored data changed with a returned slice: %q", again)
	}
}

func TestMemoryFileSystemCleansPaths(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("./out/../out/report.tsv", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if !mfs.Exists("out/report.tsv") {
		t.Error("Exists() = false for the cleaned equivalent path")
	}
	if _, err := mfs.ReadFile("out/./report.tsv"); err != nil {
		t.Errorf("ReadFile() via unclean path error = %v", err)
	}
}

func TestMemoryFileSystemMkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		if !mfs.Exists(dir) {
			t.Errorf("Exists(%q) = false after MkdirAll(a/b/c)", dir)
		}
	}
	if mfs.Exists("a/b/c/d") {
		t.Error("Exists(a/b/c/d) = true for a directory never created")
	}
}

func TestMemoryFileSystemOpenStat(t *testing.T) {
	mfs := NewMemoryFileSystem()

	content := []byte("12.345\t\tlocal_deviation\t\tfoo\n")
	if err := mfs.WriteFile("exports/run.boris.tsv", content, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := mfs.Open("exports/run.boris.tsv")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Name() != "run.boris.tsv" {
		t.Errorf("Stat().Name() = %q, want %q", info.Name(), "run.boris.tsv")
	}
	if info.Size() != int64(len(content)) {
		t.Errorf("Stat().Size() = %d, want %d", info.Size(), len(content))
	}
	if info.IsDir() {
		t.Error("Stat().IsDir() = true for a file")
	}

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("ReadAll() = %q, want %q", got, content)
	}
	// A drained reader reports EOF, not more data.
	n, err := f.Read(make([]byte, 8))
	if n != 0 || err != io.EOF {
		t.Errorf("Read() after drain = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestMemoryFileSystemOverwrite(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("f.txt", []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := mfs.WriteFile("f.txt", []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := mfs.ReadFile("f.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("ReadFile() after overwrite = %q, want %q", got, "second")
	}
}
