package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MODEL_PATH", "PORT", "LOG_LEVEL", "API_URL", "FRONTEND_PORT", "FRONTEND_LOCALE"} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Path != "model.json" || cfg.Http.Port != 5002 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Frontend.APIURL != "http://127.0.0.1:5002" || cfg.Frontend.Port != 8501 {
		t.Fatalf("unexpected frontend defaults: %+v", cfg.Frontend)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  port: 9000
  timeout: 10s
model:
  path: models/iris.json
log:
  level: debug
frontend:
  locale: es
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clearEnv(t)
	t.Setenv("MODEL_PATH", "/srv/model.json.gz")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 9000 || cfg.Http.Timeout != 10*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.Http)
	}
	if cfg.Model.Path != "/srv/model.json.gz" {
		t.Fatalf("expected MODEL_PATH override, got %s", cfg.Model.Path)
	}
	if cfg.Log.Level != "debug" || cfg.Frontend.Locale != "es" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.Http.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected default body limit, got %d", cfg.Http.MaxBodyBytes)
	}
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	cfg := Default()
	env := map[string]string{"PORT": "http", "FRONTEND_PORT": "x"}
	err := cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if len(multierr.Errors(err)) != 2 {
		t.Fatalf("expected two errors, got %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Http.Port = 0
	cfg.Model.Path = ""
	cfg.Log.Level = "verbose"
	cfg.Frontend.Locale = "not a locale!"

	err := cfg.Validate()
	errs := multierr.Errors(err)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), err)
	}
	if !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}
