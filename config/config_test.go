package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Store.Driver != DriverFile || cfg.Store.Path != "profit.json" {
		t.Errorf("store = %+v, want file profit.json", cfg.Store)
	}
	if cfg.Undo.Window != 5*time.Second {
		t.Errorf("undo window = %v, want 5s", cfg.Undo.Window)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "pm.yaml", `
store:
  driver: sqlite
undo:
  window: 10s
exchange_rate: "128.5"
backup:
  dir: /tmp/pm
`)
	t.Setenv("PM_LOG_LEVEL", "debug")
	t.Setenv("PM_BACKUP_DIR", "/var/backups/pm")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path != "profit.db" {
		t.Errorf("store = %+v, want sqlite profit.db", cfg.Store)
	}
	if cfg.Undo.Window != 10*time.Second {
		t.Errorf("undo window = %v, want 10s", cfg.Undo.Window)
	}
	if r, _ := cfg.Rate(); r.String() != "128.5" {
		t.Errorf("rate = %v, want 128.5", r)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Backup.Dir != "/var/backups/pm" {
		t.Errorf("backup dir = %q, want the environment value", cfg.Backup.Dir)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PM_STORE_PATH=from-dotenv.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PM_STORE_PATH", "") // restored after the test, .env sets it.
	os.Unsetenv("PM_STORE_PATH")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Store.Path != "from-dotenv.json" {
		t.Errorf("store path = %q, want the .env value", cfg.Store.Path)
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	cfg.Store.Driver = "postgres"
	cfg.ExchangeRate = "-1"
	cfg.Backup.Schedule = "every day"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() succeeded, want errors")
	}
}
