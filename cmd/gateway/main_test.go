package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/moodcast/internal/infrastructure/config"
	"github.com/nerrad567/moodcast/internal/infrastructure/logging"
)

// setConfigEnv points the config loader at path and at a dotenv file that
// does not exist.
func setConfigEnv(t *testing.T, path string) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv(config.EnvFile, filepath.Join(t.TempDir(), "missing.env"))
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	setConfigEnv(t, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run refuses a config that fails validation.
func TestRun_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mqtt:
  broker:
    host: ""
gateway:
  request_topic: "requests/#"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, path)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail validation")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

func TestOpenHistory_Disabled(t *testing.T) {
	cfg := &config.Config{History: config.HistoryConfig{Enabled: false}}
	db, repo := openHistory(context.Background(), cfg, logging.Default("test"))
	if db != nil || repo != nil {
		t.Error("openHistory() should return nils when disabled")
	}
}

func TestOpenHistory_Enabled(t *testing.T) {
	cfg := &config.Config{History: config.HistoryConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}}
	db, repo := openHistory(context.Background(), cfg, logging.Default("test"))
	if db == nil || repo == nil {
		t.Fatal("openHistory() returned nil")
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	n, err := repo.Count(context.Background(), "Brno")
	if err != nil || n != 0 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestOpenHistory_BadPath(t *testing.T) {
	// A regular file where the parent directory should be.
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, nil, 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{History: config.HistoryConfig{
		Enabled: true,
		Path:    filepath.Join(parent, "history.db"),
	}}
	db, repo := openHistory(context.Background(), cfg, logging.Default("test"))
	if db != nil || repo != nil {
		t.Error("openHistory() should degrade to nils")
	}
}

func TestConnectInflux_Disabled(t *testing.T) {
	cfg := &config.Config{}
	if c := connectInflux(context.Background(), cfg, logging.Default("test")); c != nil {
		t.Error("connectInflux() should return nil when disabled")
	}
}
