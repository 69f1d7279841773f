package localize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

// RunStats summarizes one localization run.
type RunStats struct {
	Footprints     int
	Symbols        int
	Datasheets     int
	FilesUpdated   int
	BackupsCreated int
}

// Options control what a run does beyond the naming config.
type Options struct {
	DryRun bool

	// Footprints, Symbols and Datasheets select which asset kinds to
	// localize; all true by default via DefaultOptions.
	Footprints bool
	Symbols    bool
	Datasheets bool
}

// DefaultOptions localizes everything for real.
func DefaultOptions() Options {
	return Options{Footprints: true, Symbols: true, Datasheets: true}
}

// Runner drives a full localization pass over one project directory,
// sharing a single parser cache, backup manager and dedup state between
// the per-asset localizers.
type Runner struct {
	cfg    Config
	opts   Options
	log    Logger
	writer *FileWriter

	scanner *Scanner
	libs    *LibraryManager
}

// NewRunner assembles a runner; log may be nil.
func NewRunner(cfg Config, opts Options, log Logger) *Runner {
	log = ensureLogger(log)
	parser := sexpr.NewParser(sexpr.DefaultCacheSize)
	return &Runner{
		cfg:     cfg,
		opts:    opts,
		log:     log,
		writer:  NewFileWriter(opts.DryRun, cfg.CreateBackups, log),
		scanner: NewScanner(parser, log),
		libs:    NewLibraryManager(parser, log),
	}
}

// Writer exposes the run's file writer, mainly for tests.
func (r *Runner) Writer() *FileWriter {
	return r.writer
}

// projectSymbolLibs lists the symbol library files datasheet scanning
// covers: the local consolidated library plus any .kicad_sym directly in
// the project directory.
func (r *Runner) projectSymbolLibs(projectDir string) []string {
	var libs []string
	local := filepath.Join(projectDir, r.cfg.SymbolDirName, r.cfg.SymbolLibName+ExtSymbolLib)
	if _, err := os.Stat(local); err == nil {
		libs = append(libs, local)
	}
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return libs
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ExtSymbolLib {
			libs = append(libs, filepath.Join(projectDir, entry.Name()))
		}
	}
	return libs
}

// Run localizes the selected asset kinds in projectDir and returns the
// accumulated statistics. Each stage is independent; a stage error aborts
// the run with the stats gathered so far.
func (r *Runner) Run(projectDir string) (RunStats, error) {
	var stats RunStats

	info, err := os.Stat(projectDir)
	if err != nil || !info.IsDir() {
		return stats, fmt.Errorf("project directory not found: %s", projectDir)
	}

	if r.opts.DryRun {
		r.log.Info("dry run: no files will be modified")
	}

	if r.opts.Symbols {
		r.log.Info("=== localizing symbols ===")
		count, err := NewSymbolLocalizer(r.cfg, r.scanner, r.libs, r.writer, r.log).Run(projectDir)
		if err != nil {
			return stats, fmt.Errorf("symbol localization: %w", err)
		}
		stats.Symbols = count
	}

	if r.opts.Footprints {
		r.log.Info("=== localizing footprints ===")
		count, err := NewFootprintLocalizer(r.cfg, r.scanner, r.libs, r.writer, r.log).Run(projectDir)
		if err != nil {
			return stats, fmt.Errorf("footprint localization: %w", err)
		}
		stats.Footprints = count
	}

	if r.opts.Datasheets {
		r.log.Info("=== localizing datasheets ===")
		count, updated, err := NewDatasheetLocalizer(r.cfg, r.scanner, r.writer, r.log).Run(projectDir, r.projectSymbolLibs(projectDir))
		if err != nil {
			return stats, fmt.Errorf("datasheet localization: %w", err)
		}
		stats.Datasheets = count
		stats.FilesUpdated += updated
	}

	stats.BackupsCreated = len(r.writer.Backups.Backups())
	r.log.Success("localization complete: %d symbols, %d footprints, %d datasheets, %d backups",
		stats.Symbols, stats.Footprints, stats.Datasheets, stats.BackupsCreated)
	return stats, nil
}
