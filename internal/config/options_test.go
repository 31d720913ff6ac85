package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Compile != CompileOn {
		t.Errorf("default compile mode = %q, want %q", opts.Compile, CompileOn)
	}
	if opts.EagerAmbiguityPrinting {
		t.Errorf("eager ambiguity printing defaults to off")
	}
	if !opts.OverwriteWarnings {
		t.Errorf("overwrite warnings default to on")
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	data := "compile: \"off\"\neager_ambiguity_printing: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Compile != CompileOff {
		t.Errorf("compile = %q, want off", opts.Compile)
	}
	if !opts.EagerAmbiguityPrinting {
		t.Errorf("eager_ambiguity_printing should be true")
	}
	if !opts.OverwriteWarnings {
		t.Errorf("unset keys keep their defaults")
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte("compile: warp\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("an unknown compile mode must be rejected")
	}
}

func TestLoadIfPresentMissingFile(t *testing.T) {
	opts, err := LoadIfPresent(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("a missing file falls back to defaults, got %v", err)
	}
	if opts.Compile != CompileOn {
		t.Errorf("fallback options should be the defaults")
	}
}
