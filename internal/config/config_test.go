package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_TYPE", "STORAGE_KEY", "JWT_EXPIRATION", "EDITOR_PASSPHRASE_HASH", "WS_PONG_WAIT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Storage.Type != StorageFilesystem {
		t.Errorf("expected filesystem storage, got %s", cfg.Storage.Type)
	}
	if cfg.Storage.Key != DefaultStorageKey {
		t.Errorf("expected key %s, got %s", DefaultStorageKey, cfg.Storage.Key)
	}
	if cfg.Auth.Enabled() {
		t.Error("expected auth disabled without a passphrase hash")
	}
	if cfg.WebSocket.PingPeriod >= cfg.WebSocket.PongWait {
		t.Errorf("expected ping period below pong wait, got %v >= %v", cfg.WebSocket.PingPeriod, cfg.WebSocket.PongWait)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "SQLite")
	t.Setenv("JWT_EXPIRATION", "30m")
	t.Setenv("CATALOGUE_WATCH", "true")
	t.Setenv("EDITOR_PASSPHRASE_HASH", "$2a$12$abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Storage.Type != StorageSQLite {
		t.Errorf("expected sqlite storage, got %s", cfg.Storage.Type)
	}
	if cfg.Auth.JWTExpiration != 30*time.Minute {
		t.Errorf("expected 30m expiration, got %v", cfg.Auth.JWTExpiration)
	}
	if !cfg.Catalogue.Watch || !cfg.Auth.Enabled() {
		t.Error("expected watch and auth enabled")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"storage type", "STORAGE_TYPE", "s3"},
		{"jwt expiration", "JWT_EXPIRATION", "forever"},
		{"fetch timeout", "CATALOGUE_FETCH_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoggingConfig_Apply(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	LoggingConfig{Level: "debug", Format: "json"}.Apply()
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", logrus.GetLevel())
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter); !ok {
		t.Error("expected JSON formatter")
	}

	LoggingConfig{Level: "loud", Format: "text"}.Apply()
	if logrus.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected fallback to info, got %s", logrus.GetLevel())
	}
}
