package config

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wie.yaml")
	if err := Save(path, Config{Vendor: VendorLGT, LogLevel: "debug", LogFormat: "console", ScreenW: 1, ScreenH: 1, SaveDir: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vendor != VendorLGT {
		t.Fatalf("expected vendor lgt, got %s", cfg.Vendor)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.LogLevel)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Vendor != VendorKTF {
		t.Fatalf("expected default vendor ktf, got %s", cfg.Vendor)
	}
	if cfg.ScreenW != 240 || cfg.ScreenH != 320 {
		t.Fatalf("unexpected default screen size %dx%d", cfg.ScreenW, cfg.ScreenH)
	}
}
