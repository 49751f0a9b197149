package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	os.WriteFile(path, []byte("console:\n  realm: acme\n"), 0o644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Console.Realm != "acme" {
		t.Errorf("realm = %q", cfg.Console.Realm)
	}
	if cfg.Console.BaseURL != "https://portal.tradecentric.com" {
		t.Errorf("base url = %q", cfg.Console.BaseURL)
	}
	if cfg.Wait.Interval != 300*time.Millisecond || cfg.Wait.MaxAttempts != 30 {
		t.Errorf("wait = %+v", cfg.Wait)
	}
	if !cfg.Browser.HeadlessEnabled() {
		t.Error("headless should default to true")
	}
	if cfg.Output.CatalogExt != "cxml" {
		t.Errorf("catalog ext = %q", cfg.Output.CatalogExt)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	os.WriteFile(path, []byte(`
browser:
  headless: false
  resource_blocking: [image, font]
wait:
  interval: 50ms
  max_attempts: 4
rules:
  catalog: ["/cat"]
  payload: ["/pay", "/json"]
output:
  dir: out
`), 0o644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.HeadlessEnabled() {
		t.Error("headless: false must be honored")
	}
	if len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("resource blocking = %v", cfg.Browser.ResourceBlocking)
	}
	if cfg.Wait.Interval != 50*time.Millisecond || cfg.Wait.MaxAttempts != 4 {
		t.Errorf("wait = %+v", cfg.Wait)
	}
	if len(cfg.Rules.Catalog) != 1 || len(cfg.Rules.Payload) != 2 {
		t.Errorf("rules = %+v", cfg.Rules)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("dir = %q", cfg.Output.Dir)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
