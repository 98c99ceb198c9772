package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndLoadTOML(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "config.toml")

	original := DefaultProjectConfig()
	original.Ledger.Name = "honey-exports"
	original.Ledger.UUID = "6f1c9a7e-5b7e-4c4e-9a43-0c2b7f0f3a11"
	original.Ledger.MiningTimeout = Duration{90 * time.Second}

	if err := SaveTOML(testFile, original); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded := &ProjectConfig{}
	if err := LoadTOML(testFile, loaded); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if loaded.Ledger != original.Ledger {
		t.Errorf("Expected ledger %+v, got %+v", original.Ledger, loaded.Ledger)
	}
}

func TestDurationWrittenAsString(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "config.toml")

	if err := SaveTOML(testFile, DefaultProjectConfig()); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}
	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), `mining_timeout = "5m0s"`) {
		t.Errorf("Expected mining_timeout as a duration string, got:\n%s", data)
	}
}

func TestLoadTOMLNonExistent(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "nonexistent.toml")

	if err := LoadTOML(testFile, &ProjectConfig{}); err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
}

func TestSaveTOMLCreatesDirectory(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), ".kaitiaki", "config.toml")

	if err := SaveTOML(testFile, DefaultProjectConfig()); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	if _, err := os.Stat(testFile); os.IsNotExist(err) {
		t.Fatal("File was not created")
	}
}
