package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAttachErrorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.log")
	if err := AttachErrorFile(path); err != nil {
		t.Fatalf("attach: %v", err)
	}
	t.Cleanup(func() {
		mu.Lock()
		if errorFile != nil {
			errorFile.Close()
			errorFile = nil
		}
		rebuild()
		mu.Unlock()
	})

	Info("informational", "k", "v")
	Error("something failed", "reason", "test")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading error log: %v", err)
	}
	text := string(content)

	if strings.Contains(text, "informational") {
		t.Error("info records should not reach the error log")
	}
	if !strings.Contains(text, "something failed") {
		t.Error("error record missing from error log")
	}
	// Records carry timestamp and severity.
	if !strings.Contains(text, `"time"`) || !strings.Contains(text, `"level":"ERROR"`) {
		t.Errorf("error log record missing time/level: %s", text)
	}
}

func TestAttachErrorFile_BadPath(t *testing.T) {
	if err := AttachErrorFile(filepath.Join(t.TempDir(), "missing", "frames.log")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
