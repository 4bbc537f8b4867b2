package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSilentByDefault(t *testing.T) {
	Close()
	if GetWriter() != io.Discard {
		t.Error("expected io.Discard before Init")
	}
	// must not panic
	Info("nothing %d", 1)
}

func TestSetOutput(t *testing.T) {
	defer Close()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("launched %s", "com.android.settings")
	Warn("press back failed")
	Error("shell: %v", "exit 1")
	Debug("poll")

	got := buf.String()
	for _, want := range []string{
		"[INFO] launched com.android.settings",
		"[WARN] press back failed",
		"[ERROR] shell: exit 1",
		"[DEBUG] poll",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got %q", want, got)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	defer Close()

	path := filepath.Join(t.TempDir(), "jyn.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] hello") {
		t.Errorf("expected log line, got %q", string(data))
	}
	if GetWriter() == io.Discard {
		t.Error("expected file writer after Init")
	}
}

func TestInitInvalidPath(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "missing", "dir", "jyn.log")); err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestMirror(t *testing.T) {
	defer Close()

	var primary, mirror bytes.Buffer
	SetOutput(&primary)
	Mirror(&mirror)

	Info("both")

	if !strings.Contains(primary.String(), "both") {
		t.Error("expected line in primary output")
	}
	if !strings.Contains(mirror.String(), "both") {
		t.Error("expected line in mirror output")
	}
}
