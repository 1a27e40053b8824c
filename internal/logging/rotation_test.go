package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("creates log file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "nested", "dir", "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		if err := os.WriteFile(logPath, []byte("existing\n"), 0644); err != nil {
			t.Fatalf("failed to seed log file: %v", err)
		}

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		if _, err := rw.Write([]byte("appended\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if string(content) != "existing\nappended\n" {
			t.Errorf("expected appended content, got %q", string(content))
		}
	})

	t.Run("tracks size of existing file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		if err := os.WriteFile(logPath, []byte("12345"), 0644); err != nil {
			t.Fatalf("failed to seed log file: %v", err)
		}

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if rw.CurrentSize() != 5 {
			t.Errorf("expected size 5, got %d", rw.CurrentSize())
		}
	})
}

func TestRotatingWriterWrite(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	n, err := rw.Write([]byte("hello\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 6 {
		t.Errorf("expected 6 bytes written, got %d", n)
	}
	if rw.CurrentSize() != 6 {
		t.Errorf("expected size 6, got %d", rw.CurrentSize())
	}

	_ = rw.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", string(content))
	}
}

func TestRotation(t *testing.T) {
	t.Run("rotates when size limit exceeded", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 3})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		// Shrink the limit so the test doesn't need megabytes of writes
		rw.maxBytes = 100

		// First write fits under the limit
		if _, err := rw.Write([]byte(strings.Repeat("a", 90))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		// Second write would exceed the limit, triggering rotation
		if _, err := rw.Write([]byte(strings.Repeat("b", 50))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		// Backup should hold the first write
		backup, err := os.ReadFile(logPath + ".1")
		if err != nil {
			t.Fatalf("failed to read backup file: %v", err)
		}
		if string(backup) != strings.Repeat("a", 90) {
			t.Errorf("backup content mismatch: got %d bytes", len(backup))
		}

		// Current file should hold only the second write
		current, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read current file: %v", err)
		}
		if string(current) != strings.Repeat("b", 50) {
			t.Errorf("current content mismatch: got %d bytes", len(current))
		}
	})

	t.Run("keeps only maxBackups backup files", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		rw.maxBytes = 10

		// Every write after the first exceeds the limit, forcing a
		// rotation per write.
		for i := 0; i < 5; i++ {
			if _, err := rw.Write([]byte(fmt.Sprintf("write-%d\n", i))); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}
		_ = rw.Close()

		if _, err := os.Stat(logPath + ".1"); err != nil {
			t.Errorf("expected backup .1 to exist: %v", err)
		}
		if _, err := os.Stat(logPath + ".2"); err != nil {
			t.Errorf("expected backup .2 to exist: %v", err)
		}
		if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
			t.Errorf("expected backup .3 to not exist, got err=%v", err)
		}
	})

	t.Run("shifts backups in order", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 3})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		rw.maxBytes = 10

		for i := 0; i < 3; i++ {
			if _, err := rw.Write([]byte(fmt.Sprintf("write-%d\n", i))); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}
		_ = rw.Close()

		// Most recent backup is .1, older content shifts to .2
		b1, err := os.ReadFile(logPath + ".1")
		if err != nil {
			t.Fatalf("failed to read .1: %v", err)
		}
		if string(b1) != "write-1\n" {
			t.Errorf("expected .1 to hold write-1, got %q", string(b1))
		}

		b2, err := os.ReadFile(logPath + ".2")
		if err != nil {
			t.Fatalf("failed to read .2: %v", err)
		}
		if string(b2) != "write-0\n" {
			t.Errorf("expected .2 to hold write-0, got %q", string(b2))
		}
	})

	t.Run("discards current file when maxBackups is zero", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 0})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		rw.maxBytes = 10

		if _, err := rw.Write([]byte("first-write\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := rw.Write([]byte("second\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
			t.Errorf("expected no backup files, got err=%v", err)
		}

		// Current file holds only the post-rotation write
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read current file: %v", err)
		}
		if string(content) != "second\n" {
			t.Errorf("expected only second write, got %q", string(content))
		}
	})

	t.Run("no rotation when under limit", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		for i := 0; i < 100; i++ {
			if _, err := rw.Write([]byte("small write\n")); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}
		_ = rw.Close()

		if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
			t.Errorf("expected no backups for small writes, got err=%v", err)
		}
	})
}

func TestRotationConcurrency(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 5})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxBytes = 500

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				line := fmt.Sprintf("goroutine-%d-line-%d\n", n, j)
				if _, err := rw.Write([]byte(line)); err != nil {
					t.Errorf("Write failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	_ = rw.Close()

	// Rotation may discard the oldest backups, so verify integrity
	// rather than an exact total: every surviving line must be whole.
	total := 0
	paths := []string{logPath}
	for i := 1; i <= 5; i++ {
		paths = append(paths, fmt.Sprintf("%s.%d", logPath, i))
	}
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			t.Fatalf("failed to read %s: %v", p, err)
		}
		for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "goroutine-") || !strings.Contains(line, "-line-") {
				t.Errorf("found torn line in %s: %q", p, line)
			}
			total++
		}
	}

	if total == 0 {
		t.Error("expected surviving log lines, found none")
	}
	if total > 500 {
		t.Errorf("found %d lines, more than the 500 written", total)
	}
}

func TestRotatingWriterClose(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	if _, err := rw.Write([]byte("before close\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}

	// Second close is a no-op
	if err := rw.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}

	// Writes after close fail
	if _, err := rw.Write([]byte("after close\n")); err == nil {
		t.Error("expected Write after Close to fail")
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	t.Run("creates rotating logger", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		defer logger.Close()

		if logger.rotation == nil {
			t.Fatal("expected rotation writer to be set")
		}

		logger.Info("test message")

		logPath := filepath.Join(dir, "debug.log")
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("falls back to stderr when stateDir is empty", func(t *testing.T) {
		logger, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		defer logger.Close()

		if logger.rotation != nil {
			t.Error("expected no rotation writer for empty stateDir")
		}
	})

	t.Run("rotates log output", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLoggerWithRotation(dir, LevelInfo, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		logger.rotation.maxBytes = 200

		for i := 0; i < 10; i++ {
			logger.Info("rotation fill message", "iteration", i)
		}
		logger.Close()

		logPath := filepath.Join(dir, "debug.log")
		if _, err := os.Stat(logPath + ".1"); err != nil {
			t.Errorf("expected backup after rotation: %v", err)
		}
	})

	t.Run("child loggers share the rotation writer", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLoggerWithRotation(dir, LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		defer logger.Close()

		child := logger.WithPort(2217).WithComponent("relay")
		if child.rotation != logger.rotation {
			t.Error("expected child logger to share parent's rotation writer")
		}

		child.Info("from child")

		logPath := filepath.Join(dir, "debug.log")
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}

		var entry map[string]any
		if err := json.Unmarshal(content, &entry); err != nil {
			t.Fatalf("failed to parse log entry: %v", err)
		}
		if entry["tcp_port"] != float64(2217) {
			t.Errorf("expected tcp_port=2217, got %v", entry["tcp_port"])
		}
		if entry["component"] != "relay" {
			t.Errorf("expected component=relay, got %v", entry["component"])
		}
	})
}

func TestDefaultRotationConfig(t *testing.T) {
	config := DefaultRotationConfig()

	if config.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB=10, got %d", config.MaxSizeMB)
	}
	if config.MaxBackups != 3 {
		t.Errorf("expected MaxBackups=3, got %d", config.MaxBackups)
	}
}

func TestFilePath(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if rw.FilePath() != logPath {
		t.Errorf("FilePath() = %q, expected %q", rw.FilePath(), logPath)
	}
}

func TestRotatingWriterSync(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if _, err := rw.Write([]byte("synced\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync returned error: %v", err)
	}
}
