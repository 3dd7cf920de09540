package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(testContext *testing.T) {
	configViper := NewViper()
	configViper.Set("admin.password", "letmein")

	cfg, err := Load(configViper)
	if err != nil {
		testContext.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		testContext.Fatalf("expected default address, got %q", cfg.HTTPAddress)
	}
	if cfg.PhotosRateLimit != 30 || cfg.PhotosRateWindow != time.Hour {
		testContext.Fatalf("unexpected photo rate limit %d per %s", cfg.PhotosRateLimit, cfg.PhotosRateWindow)
	}
	if cfg.PhotosMaxBytes != 15<<20 {
		testContext.Fatalf("unexpected photo size cap %d", cfg.PhotosMaxBytes)
	}
	if len(cfg.AllowedOrigins) != len(defaultAllowedOrigins) {
		testContext.Fatalf("expected default origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironment(testContext *testing.T) {
	testContext.Setenv("WEDDING_ADMIN_PASSWORD", "from-env")
	testContext.Setenv("WEDDING_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	testContext.Setenv("WEDDING_PHOTOS_RATE_WINDOW", "15m")

	cfg, err := Load(NewViper())
	if err != nil {
		testContext.Fatalf("unexpected load error: %v", err)
	}
	if cfg.AdminPassword != "from-env" {
		testContext.Fatalf("expected admin password from env, got %q", cfg.AdminPassword)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		testContext.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.PhotosRateWindow != 15*time.Minute {
		testContext.Fatalf("unexpected rate window %s", cfg.PhotosRateWindow)
	}
}

func TestLoadValidation(testContext *testing.T) {
	testCases := []struct {
		name     string
		override map[string]any
		wantErr  string
	}{
		{name: "missing admin password", override: map[string]any{}, wantErr: "admin.password is required"},
		{name: "empty database path", override: map[string]any{"admin.password": "x", "database.path": " "}, wantErr: "database.path is required"},
		{name: "zero rate limit", override: map[string]any{"admin.password": "x", "photos.rate_limit": 0}, wantErr: "photos.rate_limit must be positive"},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range testCase.override {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			if err == nil || err.Error() != testCase.wantErr {
				t.Fatalf("expected %q, got %v", testCase.wantErr, err)
			}
		})
	}
}

func TestLoadStorageSkipsServerKeys(testContext *testing.T) {
	cfg, err := LoadStorage(NewViper())
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != defaultDatabasePath {
		testContext.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
}
