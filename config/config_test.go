package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[gc]
stress = true

[dispatcher]
pool-size = 8
`
	if err := os.WriteFile(filepath.Join(dir, "lox.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.GC.Stress {
		t.Error("GC.Stress = false, want true")
	}
	if cfg.GC.GrowFactor != 2 {
		t.Errorf("GrowFactor = %d, want default 2", cfg.GC.GrowFactor)
	}
	if cfg.Dispatcher.PoolSize != 8 {
		t.Errorf("PoolSize = %d, want 8", cfg.Dispatcher.PoolSize)
	}
}

func TestDefaultMatchesSpecNumbers(t *testing.T) {
	d := Default()
	if d.GC.GrowFactor != 2 {
		t.Errorf("GrowFactor = %d, want 2", d.GC.GrowFactor)
	}
	if d.GC.InitialNextGC != 1<<20 {
		t.Errorf("InitialNextGC = %d, want %d", d.GC.InitialNextGC, 1<<20)
	}
	if d.Dispatcher.PoolSize != 32 {
		t.Errorf("PoolSize = %d, want 32", d.Dispatcher.PoolSize)
	}
}

func TestFindAndLoadWalksUpToNearestFile(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[dispatcher]
pool-size = 4
`
	if err := os.WriteFile(filepath.Join(dir, "lox.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if cfg.Dispatcher.PoolSize != 4 {
		t.Errorf("PoolSize = %d, want 4", cfg.Dispatcher.PoolSize)
	}
}

func TestFindAndLoadFallsBackToDefaultsWhenNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if cfg.Dispatcher.PoolSize != 32 {
		t.Errorf("expected default config, got PoolSize = %d", cfg.Dispatcher.PoolSize)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error loading nonexistent lox.toml")
	}
}
