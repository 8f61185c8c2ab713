package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_ConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log, err := New(Options{Level: "info", Dir: dir, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("document served", "vm", "web01")
	log.Debugw("hidden at info")
	_ = log.Sync()

	if !strings.Contains(console.String(), "document served") {
		t.Fatalf("console missing entry: %q", console.String())
	}
	if strings.Contains(console.String(), "hidden at info") {
		t.Fatalf("debug entry leaked at info level")
	}

	file := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"vm":"web01"`) {
		t.Fatalf("file sink missing JSON fields: %s", b)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Options{Level: "chatty", Console: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
