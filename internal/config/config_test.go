package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Embedding.Dim != DefaultEmbeddingDim {
		t.Errorf("expected default embedding dim %d, got %d", DefaultEmbeddingDim, cfg.Embedding.Dim)
	}
	if cfg.Recognition.CosineThreshold != DefaultCosineThreshold {
		t.Errorf("expected cosine threshold %v, got %v", DefaultCosineThreshold, cfg.Recognition.CosineThreshold)
	}
	if cfg.Recognition.EuclideanThreshold != DefaultEuclideanThreshold {
		t.Errorf("expected euclidean threshold %v, got %v", DefaultEuclideanThreshold, cfg.Recognition.EuclideanThreshold)
	}
	if cfg.Recognition.Cooldown != DefaultCooldownWindow {
		t.Errorf("expected cooldown %v, got %v", DefaultCooldownWindow, cfg.Recognition.Cooldown)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "128")
	t.Setenv("COSINE_THRESHOLD", "0.9")
	t.Setenv("RECOGNITION_COOLDOWN", "10s")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := Load()

	if cfg.Embedding.Dim != 128 {
		t.Errorf("expected embedding dim 128, got %d", cfg.Embedding.Dim)
	}
	if cfg.Recognition.CosineThreshold != 0.9 {
		t.Errorf("expected cosine threshold 0.9, got %v", cfg.Recognition.CosineThreshold)
	}
	if cfg.Recognition.Cooldown != 10*time.Second {
		t.Errorf("expected cooldown 10s, got %v", cfg.Recognition.Cooldown)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[0] != "https://a.example.com" {
		t.Errorf("expected 2 trimmed origins, got %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "not-a-number")
	t.Setenv("COSINE_THRESHOLD", "-1")
	t.Setenv("RECOGNITION_COOLDOWN", "soon")

	cfg := Load()

	if cfg.Embedding.Dim != DefaultEmbeddingDim {
		t.Errorf("expected fallback dim %d, got %d", DefaultEmbeddingDim, cfg.Embedding.Dim)
	}
	if cfg.Recognition.CosineThreshold != DefaultCosineThreshold {
		t.Errorf("expected fallback threshold %v, got %v", DefaultCosineThreshold, cfg.Recognition.CosineThreshold)
	}
	if cfg.Recognition.Cooldown != DefaultCooldownWindow {
		t.Errorf("expected fallback cooldown %v, got %v", DefaultCooldownWindow, cfg.Recognition.Cooldown)
	}
}
