package localize

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "bakery.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("config = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "bakery.yaml", "local_lib_name: BoardLib\ncreate_backups: false\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LocalLibName != "BoardLib" {
		t.Errorf("LocalLibName = %q, want BoardLib", cfg.LocalLibName)
	}
	if cfg.CreateBackups {
		t.Errorf("CreateBackups = true, want false")
	}
	// Unset fields keep their defaults.
	if cfg.SymbolLibName != DefaultConfig().SymbolLibName {
		t.Errorf("SymbolLibName = %q, want default", cfg.SymbolLibName)
	}
}

func TestLoadConfigRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "bakery.yaml", "local_lib_name: \"My/Lib\"\n")

	if _, err := LoadConfig(path); err == nil {
		t.Errorf("expected validation error for name with separator")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "bakery.yaml", "local_lib_name: [unterminated\n")

	if _, err := LoadConfig(path); err == nil {
		t.Errorf("expected parse error for malformed YAML")
	}
}
