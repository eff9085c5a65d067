package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("hello %s", "world")
	Warning("careful")
	Error("boom %d", 1)

	out := buf.String()
	for _, want := range []string{"INFO: ", "hello world", "WARNING: ", "careful", "ERROR: ", "boom 1", "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestSetupLoggerWithDirWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	if err := SetupLoggerWithDir(dir); err != nil {
		t.Fatalf("setup logger: %v", err)
	}
	Info("written to file")
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("expected log line in file, got %q", string(data))
	}
}
