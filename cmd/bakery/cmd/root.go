package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dryRun     bool
	noBackup   bool
)

var rootCmd = &cobra.Command{
	Use:   "bakery",
	Short: "Bakery - make KiCad projects self-contained",
	Long: `Bakery localizes the external assets a KiCad project depends on:
  - Footprints are copied into a project-local .pretty library
  - 3D models are copied next to the project and re-referenced
  - Symbols are consolidated into one local .kicad_sym library
  - Datasheets are downloaded or copied into the project

All references in schematics, boards and library tables are rewritten to
${KIPRJMOD}-relative paths, so the project archives and moves cleanly.

Examples:
  bakery localize .                     # Localize everything in the current project
  bakery localize --dry-run ~/boards/x  # Preview the changes as diffs
  bakery scan ~/boards/x                # List external references without changing anything`,
	Version: "1.0.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bakery.yaml", "config file (looked up in the project directory)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "show changes as diffs without writing anything")
	rootCmd.PersistentFlags().BoolVar(&noBackup, "no-backup", false, "do not create .bak copies of modified files")
}

// resolveConfigPath locates the config file: an absolute --config is used
// as given, a relative one is looked up in the project directory.
func resolveConfigPath(projectDir string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(projectDir, configPath)
}
