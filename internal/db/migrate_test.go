package db

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("SELECT 1;"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestListMigrations_Ordered(t *testing.T) {
	dir := writeFiles(t, "0010_later.sql", "0002_second.sql", "0001_init.sql", "README.md", "draft_x.sql", "nounderscore.sql")

	ms, err := listMigrations(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 10}
	if len(ms) != len(want) {
		t.Fatalf("expected %d migrations, got %+v", len(want), ms)
	}
	for i, v := range want {
		if ms[i].version != v {
			t.Errorf("position %d: expected version %d, got %d", i, v, ms[i].version)
		}
	}
}

func TestListMigrations_DuplicateVersion(t *testing.T) {
	dir := writeFiles(t, "0001_init.sql", "0001_other.sql")
	if _, err := listMigrations(dir, zap.NewNop()); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestListMigrations_MissingDir(t *testing.T) {
	if _, err := listMigrations(filepath.Join(t.TempDir(), "nope"), zap.NewNop()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRepositoryMigrations(t *testing.T) {
	ms, err := listMigrations(filepath.Join("..", "..", "migrations"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) == 0 || ms[0].version != 1 {
		t.Fatalf("expected migrations starting at version 1, got %+v", ms)
	}
}
