package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSourceURL(t *testing.T) {
	dir := t.TempDir()
	if got := SourceURL(dir); got != "file://"+dir {
		t.Fatalf("SourceURL(%q) = %q", dir, got)
	}

	missing := filepath.Join(dir, "nope")
	if got := SourceURL(missing); got != "file://./migrations" {
		t.Fatalf("missing dir should fall back, got %q", got)
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	ups, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations found")
	}
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Fatalf("%s has no matching down migration", filepath.Base(up))
		}
	}
}
