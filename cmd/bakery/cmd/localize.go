package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/AdrianWest/Bakery/pkg/localize"
	"github.com/spf13/cobra"
)

var (
	skipFootprints bool
	skipSymbols    bool
	skipDatasheets bool
)

var localizeCmd = &cobra.Command{
	Use:   "localize <project_dir>",
	Short: "Localize external footprints, symbols and datasheets",
	Long: `Copy every externally-referenced footprint, symbol, 3D model and
datasheet into the project directory and rewrite the references to
${KIPRJMOD}-relative paths.

The project is scanned recursively; hierarchical sheets in subdirectories
are included. Settings like library names come from a bakery.yaml in the
project directory (see --config).`,
	Args: cobra.ExactArgs(1),
	RunE: runLocalize,
}

func init() {
	rootCmd.AddCommand(localizeCmd)
	localizeCmd.Flags().BoolVar(&skipFootprints, "skip-footprints", false, "do not localize footprints and 3D models")
	localizeCmd.Flags().BoolVar(&skipSymbols, "skip-symbols", false, "do not localize symbols")
	localizeCmd.Flags().BoolVar(&skipDatasheets, "skip-datasheets", false, "do not localize datasheets")
}

func runLocalize(cmd *cobra.Command, args []string) error {
	projectDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	cfg, err := localize.LoadConfig(resolveConfigPath(projectDir))
	if err != nil {
		return err
	}
	if noBackup {
		cfg.CreateBackups = false
	}

	opts := localize.DefaultOptions()
	opts.DryRun = dryRun
	opts.Footprints = !skipFootprints
	opts.Symbols = !skipSymbols
	opts.Datasheets = !skipDatasheets

	runner := localize.NewRunner(cfg, opts, newLogger(verbose))
	stats, err := runner.Run(projectDir)
	if err != nil {
		return err
	}

	fmt.Printf("Localized %d symbol(s), %d footprint(s), %d datasheet(s)\n",
		stats.Symbols, stats.Footprints, stats.Datasheets)
	if stats.BackupsCreated > 0 {
		fmt.Printf("Created %d backup file(s)\n", stats.BackupsCreated)
	}
	if dryRun {
		fmt.Println("Dry run: no files were modified")
	}
	return nil
}
