package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindProjectRootFrom(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ProjectDirName), 0755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	got, err := FindProjectRootFrom(nested)
	if err != nil {
		t.Fatalf("FindProjectRootFrom failed: %v", err)
	}
	if got != root {
		t.Errorf("FindProjectRootFrom() = %q, want %q", got, root)
	}
}

func TestFindProjectRootFromIgnoresFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ProjectDirName), []byte("x"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got, err := FindProjectRootFrom(root)
	if err != nil {
		t.Fatalf("FindProjectRootFrom failed: %v", err)
	}
	if got == root {
		t.Errorf("a plain file named %s should not mark a project root", ProjectDirName)
	}
}

func TestReadAllTrimmed(t *testing.T) {
	got, err := readAllTrimmed(strings.NewReader("  s3cret\n"))
	if err != nil {
		t.Fatalf("readAllTrimmed failed: %v", err)
	}
	if string(got) != "s3cret" {
		t.Errorf("readAllTrimmed() = %q, want %q", got, "s3cret")
	}

	if _, err := readAllTrimmed(strings.NewReader(" \n")); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestShortHash(t *testing.T) {
	tests := []struct {
		hash string
		n    int
		want string
	}{
		{"0000abcdef", 6, "0000ab…"},
		{"0000", 6, "0000"},
		{"0000abcdef", 0, "0000abcdef"},
	}
	for _, tc := range tests {
		if got := ShortHash(tc.hash, tc.n); got != tc.want {
			t.Errorf("ShortHash(%q, %d) = %q, want %q", tc.hash, tc.n, got, tc.want)
		}
	}
}

func TestFormatPaths(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	got := FormatPaths([]string{".kaitiaki/config.toml", ".kaitiaki/ledger.db"})
	want := "\n    - .kaitiaki/config.toml\n    - .kaitiaki/ledger.db\n"
	if got != want {
		t.Errorf("FormatPaths() = %q, want %q", got, want)
	}
}

func TestGetUsername(t *testing.T) {
	username, err := GetUsername()
	if err != nil {
		t.Fatalf("GetUsername failed: %v", err)
	}
	if username == "" {
		t.Fatal("Expected non-empty username")
	}
}
