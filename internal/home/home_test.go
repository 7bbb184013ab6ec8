package home

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-sightspeech")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-sightspeech" {
			t.Errorf("expected path /tmp/test-sightspeech, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-sightspeech")

	t.Run("DataPath", func(t *testing.T) {
		expected := "/tmp/test-sightspeech/data"
		if dir.DataPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.DataPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-sightspeech/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("CapturePath", func(t *testing.T) {
		ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
		got := dir.CapturePath(ts, "jpg")
		if !strings.HasPrefix(got, "/tmp/test-sightspeech/captures/frame_20260304T050607") || !strings.HasSuffix(got, ".jpg") {
			t.Errorf("unexpected capture path %s", got)
		}
	})
}

func TestDir_ResolveDataFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if got := dir.ResolveDataFile("/abs/words.txt"); got != "/abs/words.txt" {
		t.Errorf("absolute path changed: %s", got)
	}
	if got := dir.ResolveDataFile("words-that-do-not-exist.txt"); got != filepath.Join(tmpDir, "data", "words-that-do-not-exist.txt") {
		t.Errorf("relative path not resolved into data dir: %s", got)
	}
	if got := dir.ResolveDataFile(""); got != "" {
		t.Errorf("empty path should stay empty, got %s", got)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "sightspeech-test")

	dir, err := New(homeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	for _, p := range []string{dir.DataPath(), dir.CapturesPath()} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", p)
		}
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}
