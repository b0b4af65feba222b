package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present")

	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset"}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status: %#v", results[0])
	}
}

func TestVerify(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "ffmpeg")

	if err := Verify(Requirements(present)); err != nil {
		t.Fatalf("Verify with stub ffmpeg: %v", err)
	}

	err := Verify(Requirements("clearly-not-present-binary"))
	if !errors.Is(err, ErrMissingTool) {
		t.Fatalf("expected ErrMissingTool, got %v", err)
	}
}

func TestVerifySkipsOptional(t *testing.T) {
	reqs := []Requirement{{Name: "Extra", Command: "clearly-not-present-binary", Optional: true}}
	if err := Verify(reqs); err != nil {
		t.Fatalf("optional requirement must not fail verify: %v", err)
	}
}
