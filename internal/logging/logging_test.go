package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultsToInfoAndStdout(t *testing.T) {
	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Level.String() != "info" {
		t.Fatalf("level = %v, want info", logger.Level)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("output = %v, want os.Stdout", logger.Out)
	}
}

func TestNewUnknownLevelErrors(t *testing.T) {
	if _, err := New(Config{Level: "bogus"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, err := New(Config{Level: "warn", Filename: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("hello")
	// Only checks that the entry reached the file; verifying exact file
	// bytes would couple the test to logrus's formatter internals.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%q): %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatal("log file is empty after Warn")
	}
}
