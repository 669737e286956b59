package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWiresPerSitePillarClasses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lwfm.yaml")
	contents := `
lwfm:
  host: 127.0.0.1
  port: 3000
sites:
  hpc:
    class: sites.hpc
    auth: shared.auth
    repo: sites.hpc.s3repo
    venv: /opt/venvs/hpc
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	desc, ok := cfg.Sites["hpc"]
	if !ok {
		t.Fatal("expected site \"hpc\" to be loaded")
	}
	if desc.Class != "sites.hpc" {
		t.Fatalf("Class: got %q", desc.Class)
	}
	if desc.AuthClass != "shared.auth" {
		t.Fatalf("AuthClass: got %q, want it wired from the site's auth: field", desc.AuthClass)
	}
	if desc.RepoClass != "sites.hpc.s3repo" {
		t.Fatalf("RepoClass: got %q, want it wired from the site's repo: field", desc.RepoClass)
	}
	if desc.RunClass != "" || desc.SpinClass != "" {
		t.Fatalf("expected unset run/spin overrides to stay empty, got RunClass=%q SpinClass=%q", desc.RunClass, desc.SpinClass)
	}
}

func TestDefaultHasNoSites(t *testing.T) {
	cfg := Default()
	if len(cfg.Sites) != 0 {
		t.Fatalf("expected no sites in Default(), got %d", len(cfg.Sites))
	}
}
