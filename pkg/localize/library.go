package localize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

const (
	libraryTypeKiCad = "KiCad"

	kicadVersionPrimary  = "9.0"
	kicadVersionFallback = "8.0"
)

// LibraryManager resolves library nicknames through the global library
// tables and maintains the project-local fp-lib-table and sym-lib-table.
type LibraryManager struct {
	parser *sexpr.Parser
	log    Logger

	// GlobalTableDirs overrides the platform KiCad config locations,
	// mainly for tests.
	GlobalTableDirs []string
}

// NewLibraryManager builds a library manager sharing the run's parser;
// log may be nil.
func NewLibraryManager(parser *sexpr.Parser, log Logger) *LibraryManager {
	return &LibraryManager{parser: parser, log: ensureLogger(log)}
}

// globalTablePaths lists candidate locations of a global library table,
// KiCad 9 locations before their 8.0 fallbacks.
func (m *LibraryManager) globalTablePaths(tableName string) []string {
	dirs := m.GlobalTableDirs
	if dirs == nil {
		home, _ := os.UserHomeDir()
		for _, version := range []string{kicadVersionPrimary, kicadVersionFallback} {
			if appdata := os.Getenv("APPDATA"); appdata != "" {
				dirs = append(dirs, filepath.Join(appdata, "kicad", version))
			}
			if profile := os.Getenv("USERPROFILE"); profile != "" {
				dirs = append(dirs, filepath.Join(profile, "Documents", "KiCad", version))
			}
			if home != "" {
				dirs = append(dirs, filepath.Join(home, ".config", "kicad", version))
			}
		}
	}

	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		paths = append(paths, filepath.Join(dir, tableName))
	}
	return paths
}

// resolveLibraryURI finds the URI registered for nickname in the first
// global table that exists and mentions it.
func (m *LibraryManager) resolveLibraryURI(tableName, nickname string) (string, bool) {
	for _, tablePath := range m.globalTablePaths(tableName) {
		content, err := ReadTextFile(tablePath)
		if err != nil {
			continue
		}
		m.log.Info("found %s: %s", tableName, tablePath)
		if uri, ok := sexpr.FindLibraryURI(m.parser.Parse(content), nickname); ok {
			return uri, true
		}
	}
	return "", false
}

// FindFootprintLibraryPath resolves a footprint library nickname to its
// .pretty directory via the global fp-lib-table, expanding path variables.
func (m *LibraryManager) FindFootprintLibraryPath(nickname, projectDir string) (string, bool) {
	uri, ok := m.resolveLibraryURI(FPLibTableName, nickname)
	if !ok {
		m.log.Warning("library %q not found in any global fp-lib-table", nickname)
		return "", false
	}
	path := ExpandPath(uri, projectDir)
	m.log.Info("resolved %s to %s", nickname, path)
	return path, true
}

// FindSymbolLibraryPath resolves a symbol library nickname to its
// .kicad_sym file via the global sym-lib-table.
func (m *LibraryManager) FindSymbolLibraryPath(nickname, projectDir string) (string, bool) {
	uri, ok := m.resolveLibraryURI(SymLibTableName, nickname)
	if !ok {
		m.log.Warning("library %q not found in any global sym-lib-table", nickname)
		return "", false
	}
	path := ExpandPath(uri, projectDir)
	m.log.Info("resolved %s to %s", nickname, path)
	return path, true
}

// CreateLocalFootprintLibrary ensures <libName>.pretty exists in the
// project directory and returns its path. A bare directory left by an
// older run is renamed to carry the .pretty extension.
func (m *LibraryManager) CreateLocalFootprintLibrary(projectDir, libName string) (string, error) {
	if !ValidLibraryName(libName) {
		return "", fmt.Errorf("invalid library name: %q", libName)
	}

	libPath := filepath.Join(projectDir, libName+ExtFootprintLib)
	oldPath := filepath.Join(projectDir, libName)

	if _, err := os.Stat(oldPath); err == nil {
		if _, err := os.Stat(libPath); os.IsNotExist(err) {
			if err := os.Rename(oldPath, libPath); err != nil {
				return "", fmt.Errorf("rename %s: %w", oldPath, err)
			}
			m.log.Info("renamed %q to %q", libName, libName+ExtFootprintLib)
			return libPath, nil
		}
	}

	if err := os.MkdirAll(libPath, 0o755); err != nil {
		return "", fmt.Errorf("create library directory: %w", err)
	}
	m.log.Info("created local library: %s%s", libName, ExtFootprintLib)
	return libPath, nil
}

// newLibEntry builds a (lib ...) table entry pointing at a project-local
// URI.
func newLibEntry(name, uri, descr string) *sexpr.List {
	return sexpr.NewList(
		sexpr.Atom("lib"),
		sexpr.NewList(sexpr.Atom("name"), sexpr.Quote(name)),
		sexpr.NewList(sexpr.Atom("type"), sexpr.Quote(libraryTypeKiCad)),
		sexpr.NewList(sexpr.Atom("uri"), sexpr.Quote(uri)),
		sexpr.NewList(sexpr.Atom("options"), sexpr.Quote("")),
		sexpr.NewList(sexpr.Atom("descr"), sexpr.Quote(descr)),
	)
}

// UpdateFPLibTable registers the local footprint library in the project
// fp-lib-table, creating the table when absent. An existing entry is kept,
// except that a stale URI missing the .pretty suffix is corrected.
// Re-running never duplicates the entry.
func (m *LibraryManager) UpdateFPLibTable(writer *FileWriter, projectDir, libName string) error {
	tablePath := filepath.Join(projectDir, FPLibTableName)
	uri := ProjectPath(libName + ExtFootprintLib)

	m.log.Info("updating project fp-lib-table...")

	var table *sexpr.List
	oldContent := ""
	if content, err := ReadTextFile(tablePath); err == nil {
		oldContent = content
		parsed, ok := m.parser.Parse(content).(*sexpr.List)
		if !ok || parsed.Keyword() != "fp_lib_table" {
			parsed = sexpr.NewList(sexpr.Atom("fp_lib_table"))
		}
		table = parsed
	} else {
		m.log.Info("creating new fp-lib-table")
		table = sexpr.NewList(sexpr.Atom("fp_lib_table"))
	}

	if entry := findLibEntry(table, libName); entry != nil {
		fixLibEntryURI(entry, uri, ExtFootprintLib)
		m.log.Info("library %q already present in fp-lib-table", libName)
	} else {
		table.Append(newLibEntry(libName, uri, "Local project library"))
		m.log.Info("added %q to project fp-lib-table", libName)
	}

	return writer.Write(tablePath, oldContent, sexpr.Format(table))
}

// UpdateSymLibTable registers the local symbol library in the project
// sym-lib-table, creating the table when absent.
func (m *LibraryManager) UpdateSymLibTable(writer *FileWriter, projectDir, symbolLibName, symbolDirName string) error {
	tablePath := filepath.Join(projectDir, SymLibTableName)
	uri := ProjectPath(symbolDirName, symbolLibName+ExtSymbolLib)

	m.log.Info("updating project sym-lib-table...")

	var table *sexpr.List
	oldContent := ""
	if content, err := ReadTextFile(tablePath); err == nil {
		oldContent = content
		parsed, ok := m.parser.Parse(content).(*sexpr.List)
		if !ok || parsed.Keyword() != "sym_lib_table" {
			parsed = sexpr.NewList(sexpr.Atom("sym_lib_table"))
		}
		table = parsed
	} else {
		m.log.Info("creating new sym-lib-table")
		table = sexpr.NewList(sexpr.Atom("sym_lib_table"))
	}

	if findLibEntry(table, symbolLibName) != nil {
		m.log.Info("library %q already present in sym-lib-table", symbolLibName)
		return nil
	}

	table.Append(newLibEntry(symbolLibName, uri, "Local project symbol library"))
	m.log.Info("added %q to project sym-lib-table", symbolLibName)

	return writer.Write(tablePath, oldContent, sexpr.Format(table))
}

// findLibEntry returns the (lib ...) child whose name field equals
// nickname, or nil.
func findLibEntry(table *sexpr.List, nickname string) *sexpr.List {
	for _, item := range table.Items {
		entry, ok := item.(*sexpr.List)
		if !ok || entry.Keyword() != "lib" {
			continue
		}
		for _, field := range entry.Items {
			sub, ok := field.(*sexpr.List)
			if ok && sub.Keyword() == "name" && sub.Atom(1) == nickname {
				return entry
			}
		}
	}
	return nil
}

// fixLibEntryURI replaces the entry's uri field when it lacks the expected
// suffix (an artifact of older runs that registered the bare directory).
func fixLibEntryURI(entry *sexpr.List, correctURI, requiredSuffix string) {
	for i, field := range entry.Items {
		sub, ok := field.(*sexpr.List)
		if !ok || sub.Keyword() != "uri" || len(sub.Items) < 2 {
			continue
		}
		if !strings.HasSuffix(sub.Atom(1), requiredSuffix) {
			entry.Items[i] = sexpr.NewList(sexpr.Atom("uri"), sexpr.Quote(correctURI))
		}
		return
	}
}
