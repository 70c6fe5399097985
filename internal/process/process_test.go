package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestWriteAndRemovePid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pid")
	if err := WritePid(path); err != nil {
		t.Fatalf("WritePid: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("pid file not written: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Errorf("pid file holds %q, want %d", data, os.Getpid())
	}

	RemovePid(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pid file should be removed")
	}
}

func TestStopMissingPidFile(t *testing.T) {
	err := Stop(filepath.Join(t.TempDir(), "pid"))
	if err == nil || !strings.Contains(err.Error(), "no running instance") {
		t.Errorf("want missing-instance error, got %v", err)
	}
}

func TestStopCorruptPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Stop(path)
	if err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("want corrupt error, got %v", err)
	}
}
