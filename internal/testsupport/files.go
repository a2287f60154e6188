package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bidsify/internal/batchfile"
	"bidsify/internal/seqinfo"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteBatch encodes batch into dir/name; the extension selects JSON or YAML.
func WriteBatch(t testing.TB, dir, name string, batch seqinfo.Batch) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := batchfile.Encode(f, batch, batchfile.FormatForPath(path)); err != nil {
		t.Fatalf("encode batch %s: %v", path, err)
	}
	return path
}
