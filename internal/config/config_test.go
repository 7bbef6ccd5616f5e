package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECOGNITION_MODE", "")
	t.Setenv("SIMILARITY_TOP_K", "")
	t.Setenv("NOTES_CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecognitionMode != "on-device" {
		t.Fatalf("unexpected default mode: %s", cfg.RecognitionMode)
	}
	if cfg.SimilarityTopK != 10 {
		t.Fatalf("unexpected default top k: %d", cfg.SimilarityTopK)
	}
	if !cfg.SpellcheckEnabled {
		t.Fatalf("expected spellcheck enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECOGNITION_MODE", "cloud-high")
	t.Setenv("SIMILARITY_TOP_K", "25")
	t.Setenv("SPELLCHECK_ENABLED", "false")
	t.Setenv("NOTES_CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecognitionMode != "cloud-high" {
		t.Fatalf("unexpected mode: %s", cfg.RecognitionMode)
	}
	if cfg.SimilarityTopK != 25 {
		t.Fatalf("unexpected top k: %d", cfg.SimilarityTopK)
	}
	if cfg.SpellcheckEnabled {
		t.Fatalf("expected spellcheck disabled")
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("SIMILARITY_TOP_K", "not-a-number")
	t.Setenv("NOTES_CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SimilarityTopK != 10 {
		t.Fatalf("expected fallback top k, got %d", cfg.SimilarityTopK)
	}
}

func TestLoadFileOverlayWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notecore.yaml")
	body := []byte("recognition_mode: cloud-low\nquota_tier_name: premium\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("RECOGNITION_MODE", "on-device")
	t.Setenv("NOTES_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecognitionMode != "cloud-low" {
		t.Fatalf("expected file overlay to win, got %s", cfg.RecognitionMode)
	}
	if cfg.QuotaTierName != "premium" {
		t.Fatalf("expected overlaid tier name, got %s", cfg.QuotaTierName)
	}
}

func TestLoadMissingOverlayFileErrors(t *testing.T) {
	t.Setenv("NOTES_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
