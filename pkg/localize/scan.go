package localize

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

// KiCad file extensions.
const (
	ExtFootprint    = ".kicad_mod"
	ExtFootprintLib = ".pretty"
	ExtSymbolLib    = ".kicad_sym"
	ExtSchematic    = ".kicad_sch"
	ExtBoard        = ".kicad_pcb"

	FPLibTableName  = "fp-lib-table"
	SymLibTableName = "sym-lib-table"
)

// FindSchematicFiles returns every .kicad_sch file under projectDir,
// recursively (hierarchical sheets may live in subdirectories), sorted for
// a consistent processing order.
func FindSchematicFiles(projectDir string) ([]string, error) {
	return findByExtension(projectDir, ExtSchematic)
}

// FindBoardFiles returns every .kicad_pcb file under projectDir, sorted.
func FindBoardFiles(projectDir string) ([]string, error) {
	return findByExtension(projectDir, ExtBoard)
}

func findByExtension(dir, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Scanner walks project source files and extracts reference sets from
// their parsed trees. One scanner (and thus one parse cache) is shared by
// all localizers in a run.
type Scanner struct {
	parser *sexpr.Parser
	log    Logger
}

// NewScanner builds a scanner; log may be nil.
func NewScanner(parser *sexpr.Parser, log Logger) *Scanner {
	return &Scanner{parser: parser, log: ensureLogger(log)}
}

// Parser exposes the shared parser for callers that parse individual
// files themselves.
func (s *Scanner) Parser() *sexpr.Parser {
	return s.parser
}

// ParseFile reads and parses one file, enforcing the read size cap.
func (s *Scanner) ParseFile(path string) (sexpr.Node, error) {
	content, err := ReadTextFile(path)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(content), nil
}

// ScanSchematics parses every schematic under projectDir and merges the
// reference sets produced by extract. A file that cannot be read is
// logged and skipped so one bad file does not abort the whole scan.
func (s *Scanner) ScanSchematics(projectDir string, extract func(sexpr.Node) map[sexpr.LibRef]struct{}) (map[sexpr.LibRef]struct{}, error) {
	refs := make(map[sexpr.LibRef]struct{})

	files, err := FindSchematicFiles(projectDir)
	if err != nil {
		return nil, err
	}
	s.log.Info("found %d schematic file(s)", len(files))

	for _, file := range files {
		s.log.Info("  parsing %s", filepath.Base(file))
		tree, err := s.ParseFile(file)
		if err != nil {
			s.log.Warning("could not read %s: %v", filepath.Base(file), err)
			continue
		}
		for ref := range extract(tree) {
			if _, dup := refs[ref]; !dup {
				s.log.Info("    - %s", ref)
			}
			refs[ref] = struct{}{}
		}
	}
	return refs, nil
}
