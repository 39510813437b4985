package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "tourledger/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	const key = "TOURLEDGER_CLI_TEST_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-dotenv" {
		t.Fatalf("%s = %q", key, got)
	}
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	const key = "TOURLEDGER_CLI_TEST_KEEP"
	t.Setenv(key, "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(key); got != "from-env" {
		t.Fatalf("%s = %q, existing value should win", key, got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TOURLEDGER_CONFIG", "")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("DATA_DIR", "")
	t.Setenv("PORT", "30001")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	t.Setenv("PORT", "not-a-port")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestShutdownContext_Cancel(t *testing.T) {
	ctx, cancel := ShutdownContext(applog.New(applog.DefaultConfig()))
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
	if ctx.Err() != context.Canceled {
		t.Fatalf("Err() = %v", ctx.Err())
	}
}
