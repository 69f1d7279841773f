package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/AdrianWest/Bakery/pkg/localize"
	"github.com/AdrianWest/Bakery/pkg/sexpr"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <project_dir>",
	Short: "List external references without modifying anything",
	Long: `Scan the project's schematics and boards and report the footprint,
symbol and datasheet references that a localize run would process.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	projectDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	cfg, err := localize.LoadConfig(resolveConfigPath(projectDir))
	if err != nil {
		return err
	}

	log := newLogger(verbose)
	parser := sexpr.NewParser(sexpr.DefaultCacheSize)
	scanner := localize.NewScanner(parser, log)

	footprints, err := scanner.ScanSchematics(projectDir, sexpr.FindFootprints)
	if err != nil {
		return err
	}
	symbols, err := scanner.ScanSchematics(projectDir, sexpr.FindSymbolRefs)
	if err != nil {
		return err
	}

	boards, err := localize.FindBoardFiles(projectDir)
	if err != nil {
		return err
	}
	for _, board := range boards {
		tree, err := scanner.ParseFile(board)
		if err != nil {
			log.Warning("could not read %s: %v", filepath.Base(board), err)
			continue
		}
		for ref := range sexpr.FindBoardFootprints(tree) {
			footprints[ref] = struct{}{}
		}
	}

	printRefs("Footprints", footprints, cfg.LocalLibName)
	printRefs("Symbols", symbols, cfg.SymbolLibName)
	return nil
}

func printRefs(heading string, refs map[sexpr.LibRef]struct{}, localLib string) {
	var external []string
	for ref := range refs {
		if ref.Library == localLib {
			continue
		}
		external = append(external, ref.String())
	}
	sort.Strings(external)

	fmt.Printf("%s (%d external):\n", heading, len(external))
	for _, ref := range external {
		fmt.Printf("  %s\n", ref)
	}
}
