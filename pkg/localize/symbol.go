package localize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

// powerLibraryName is KiCad's built-in power symbol library. Power symbols
// are virtual and must keep resolving through the global tables, so they
// are never localized.
const powerLibraryName = "power"

// Header fields written into a newly created local symbol library.
const (
	symbolLibFormatVersion    = "20241209"
	symbolLibGenerator        = "kicad_symbol_editor"
	symbolLibGeneratorVersion = "9.0"
)

// SymbolLocalizer consolidates externally-referenced schematic symbols
// into one project-local .kicad_sym library and rewrites the lib_id
// references to point at it.
type SymbolLocalizer struct {
	cfg     Config
	scanner *Scanner
	libs    *LibraryManager
	writer  *FileWriter
	log     Logger
}

// NewSymbolLocalizer wires a symbol localizer from the run's shared
// pieces; log may be nil.
func NewSymbolLocalizer(cfg Config, scanner *Scanner, libs *LibraryManager, writer *FileWriter, log Logger) *SymbolLocalizer {
	return &SymbolLocalizer{
		cfg:     cfg,
		scanner: scanner,
		libs:    libs,
		writer:  writer,
		log:     ensureLogger(log),
	}
}

// ScanReferences collects symbol references from every schematic,
// excluding power symbols and symbols already in the local library.
func (s *SymbolLocalizer) ScanReferences(projectDir string) ([]sexpr.LibRef, error) {
	s.log.Info("scanning schematics for symbol references...")
	refs, err := s.scanner.ScanSchematics(projectDir, sexpr.FindSymbolRefs)
	if err != nil {
		return nil, err
	}

	var external []sexpr.LibRef
	for ref := range refs {
		if ref.Library == powerLibraryName || ref.Library == s.cfg.SymbolLibName {
			continue
		}
		external = append(external, ref)
	}
	sort.Slice(external, func(i, j int) bool {
		return external[i].String() < external[j].String()
	})

	s.log.Info("found %d external symbol reference(s)", len(external))
	return external, nil
}

// localLibPath returns the path of the local symbol library file.
func (s *SymbolLocalizer) localLibPath(projectDir string) string {
	return filepath.Join(projectDir, s.cfg.SymbolDirName, s.cfg.SymbolLibName+ExtSymbolLib)
}

// loadLocalLibrary parses the existing local library or builds an empty
// one with a fresh header. The returned string is the file's current
// content ("" when the file does not exist yet).
func (s *SymbolLocalizer) loadLocalLibrary(path string) (*sexpr.List, string) {
	if content, err := ReadTextFile(path); err == nil {
		if lib, ok := s.scanner.Parser().Parse(content).(*sexpr.List); ok && lib.Keyword() == "kicad_symbol_lib" {
			return lib, content
		}
		s.log.Warning("existing %s is not a symbol library, starting fresh", filepath.Base(path))
	}
	lib := sexpr.NewList(
		sexpr.Atom("kicad_symbol_lib"),
		sexpr.NewList(sexpr.Atom("version"), sexpr.Atom(symbolLibFormatVersion)),
		sexpr.NewList(sexpr.Atom("generator"), sexpr.Quote(symbolLibGenerator)),
		sexpr.NewList(sexpr.Atom("generator_version"), sexpr.Quote(symbolLibGeneratorVersion)),
	)
	return lib, ""
}

// CopySymbols extracts each referenced symbol definition from its source
// library and merges it into the local library file. Returns the
// references successfully merged (including ones already present).
func (s *SymbolLocalizer) CopySymbols(projectDir string, refs []sexpr.LibRef) ([]sexpr.LibRef, error) {
	libPath := s.localLibPath(projectDir)
	localLib, oldContent := s.loadLocalLibrary(libPath)
	present := sexpr.SymbolNames(localLib)

	// Parse each source library once.
	sourceLibs := make(map[string]sexpr.Node)
	var merged []sexpr.LibRef
	added := 0

	for _, ref := range refs {
		if _, ok := present[ref.Name]; ok {
			s.log.Info("already local: %s", ref.Name)
			merged = append(merged, ref)
			continue
		}

		source, ok := sourceLibs[ref.Library]
		if !ok {
			path, found := s.libs.FindSymbolLibraryPath(ref.Library, projectDir)
			if !found {
				s.log.Warning("skipping %s: source library not found", ref)
				sourceLibs[ref.Library] = nil
				continue
			}
			tree, err := s.scanner.ParseFile(path)
			if err != nil {
				s.log.Warning("could not read %s: %v", filepath.Base(path), err)
				sourceLibs[ref.Library] = nil
				continue
			}
			source = tree
			sourceLibs[ref.Library] = tree
		}
		if source == nil {
			continue
		}

		def, found := sexpr.ExtractSymbol(source, ref.Name)
		if !found {
			s.log.Warning("symbol %q not found in library %q", ref.Name, ref.Library)
			continue
		}

		localLib.Append(def)
		present[ref.Name] = struct{}{}
		merged = append(merged, ref)
		added++
		s.log.Success("copied symbol %s", ref)
	}

	if added > 0 {
		if !s.writer.DryRun {
			if err := os.MkdirAll(filepath.Dir(libPath), 0o755); err != nil {
				return merged, fmt.Errorf("create symbol directory: %w", err)
			}
		}
		if err := s.writer.Write(libPath, oldContent, sexpr.Format(localLib)); err != nil {
			return merged, err
		}
	}
	return merged, nil
}

// UpdateSchematicReferences rewrites every merged symbol's lib_id in the
// project schematics to the local library. Returns the number of files
// modified.
func (s *SymbolLocalizer) UpdateSchematicReferences(projectDir string, merged []sexpr.LibRef) (int, error) {
	refMap := make(RefMap)
	for _, ref := range merged {
		refMap[`"`+ref.String()+`"`] = `"` + s.cfg.SymbolLibName + ":" + ref.Name + `"`
	}
	if len(refMap) == 0 {
		return 0, nil
	}

	files, err := FindSchematicFiles(projectDir)
	if err != nil {
		return 0, err
	}

	modified := 0
	for _, file := range files {
		content, err := ReadTextFile(file)
		if err != nil {
			s.log.Warning("could not read %s: %v", filepath.Base(file), err)
			continue
		}
		updated, replaced := refMap.Apply(content)
		if replaced == 0 {
			continue
		}
		if err := s.writer.Write(file, content, updated); err != nil {
			return modified, err
		}
		s.log.Success("updated %d reference(s) in %s", replaced, filepath.Base(file))
		modified++
	}
	return modified, nil
}

// Run executes the whole symbol localization flow and returns how many
// symbols were localized.
func (s *SymbolLocalizer) Run(projectDir string) (int, error) {
	refs, err := s.ScanReferences(projectDir)
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		s.log.Info("no external symbol references found")
		return 0, nil
	}

	merged, err := s.CopySymbols(projectDir, refs)
	if err != nil {
		return 0, err
	}
	if len(merged) == 0 {
		s.log.Warning("no symbols could be copied")
		return 0, nil
	}

	if _, err := s.UpdateSchematicReferences(projectDir, merged); err != nil {
		return 0, err
	}
	if err := s.libs.UpdateSymLibTable(s.writer, projectDir, s.cfg.SymbolLibName, s.cfg.SymbolDirName); err != nil {
		return 0, err
	}

	s.log.Success("localized %d symbol(s) into %s%s", len(merged), s.cfg.SymbolLibName, ExtSymbolLib)
	return len(merged), nil
}
