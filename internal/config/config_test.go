package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PUBLIC_BASE_URL", "https://api.lookali.com.br/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Errorf("KafkaBrokers = %v, want %v", cfg.KafkaBrokers, want)
	}
	if cfg.PublicBaseURL != "https://api.lookali.com.br" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.RatingsWorkers != 4 {
		t.Errorf("RatingsWorkers = %d, want 4", cfg.RatingsWorkers)
	}
	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to false")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad workers", map[string]string{"JWT_SECRET": "x", "RATINGS_WORKERS": "abc"}},
		{"zero workers", map[string]string{"JWT_SECRET": "x", "RATINGS_WORKERS": "0"}},
		{"bad migrate flag", map[string]string{"JWT_SECRET": "x", "MIGRATE_ON_START": "maybe"}},
		{"empty brokers", map[string]string{"JWT_SECRET": "x", "KAFKA_BROKERS": " , "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
