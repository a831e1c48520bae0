package cli

import (
	"os"
	"path/filepath"
	"testing"

	"budgetcare/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", log.ComponentApp)
	if logger.Component() != log.ComponentApp {
		t.Fatalf("unexpected component %q", logger.Component())
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BUDGETCARE_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUDGETCARE_TEST_VALUE", "")
	os.Unsetenv("BUDGETCARE_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("BUDGETCARE_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}
