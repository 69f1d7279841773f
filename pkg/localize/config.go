package localize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the user-tunable naming and behavior settings for one
// localization run.
type Config struct {
	// LocalLibName is the footprint library created in the project
	// (directory <name>.pretty).
	LocalLibName string `yaml:"local_lib_name"`
	// SymbolLibName is the consolidated local symbol library file stem.
	SymbolLibName string `yaml:"symbol_lib_name"`
	// SymbolDirName is the directory holding the local symbol library.
	SymbolDirName string `yaml:"symbol_dir_name"`
	// ModelsDirName is the directory 3D model files are copied into.
	ModelsDirName string `yaml:"models_dir_name"`
	// DatasheetDirName is the directory datasheet PDFs are stored in.
	DatasheetDirName string `yaml:"datasheet_dir_name"`
	// CreateBackups makes a timestamped copy of every file before it is
	// modified.
	CreateBackups bool `yaml:"create_backups"`
}

// DefaultConfig returns the stock naming scheme.
func DefaultConfig() Config {
	return Config{
		LocalLibName:     "MyLib",
		SymbolLibName:    "MySymbols",
		SymbolDirName:    "MySym",
		ModelsDirName:    "3D Models",
		DatasheetDirName: "Data_Sheets",
		CreateBackups:    true,
	}
}

// LoadConfig reads a YAML config file, filling unset fields with defaults.
// A missing file yields the defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects library and directory names that would break the
// filesystem layout.
func (c Config) Validate() error {
	names := map[string]string{
		"local_lib_name":  c.LocalLibName,
		"symbol_lib_name": c.SymbolLibName,
		"symbol_dir_name": c.SymbolDirName,
	}
	for field, name := range names {
		if !ValidLibraryName(name) {
			return fmt.Errorf("invalid %s: %q", field, name)
		}
	}
	return nil
}
