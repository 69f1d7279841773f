package localize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

// CopiedFootprint records one footprint brought into the local library.
type CopiedFootprint struct {
	Library    string // source library nickname
	Name       string // footprint name
	SourcePath string
	DestPath   string
}

// LocalRef returns the footprint's reference in the local library.
func (c CopiedFootprint) LocalRef(localLib string) string {
	return localLib + ":" + c.Name
}

// FootprintLocalizer copies externally-referenced footprints into a
// project-local .pretty library, localizes their 3D models, and rewrites
// schematic and board references to point at the local copies.
type FootprintLocalizer struct {
	cfg     Config
	scanner *Scanner
	libs    *LibraryManager
	writer  *FileWriter
	log     Logger
}

// NewFootprintLocalizer wires a footprint localizer from the run's shared
// pieces; log may be nil.
func NewFootprintLocalizer(cfg Config, scanner *Scanner, libs *LibraryManager, writer *FileWriter, log Logger) *FootprintLocalizer {
	return &FootprintLocalizer{
		cfg:     cfg,
		scanner: scanner,
		libs:    libs,
		writer:  writer,
		log:     ensureLogger(log),
	}
}

// ScanReferences collects footprint references from every schematic and
// board in the project, excluding references already in the local library.
func (f *FootprintLocalizer) ScanReferences(projectDir string) ([]sexpr.LibRef, error) {
	f.log.Info("scanning schematics for footprint references...")
	refs, err := f.scanner.ScanSchematics(projectDir, sexpr.FindFootprints)
	if err != nil {
		return nil, err
	}

	boards, err := FindBoardFiles(projectDir)
	if err != nil {
		return nil, err
	}
	f.log.Info("found %d board file(s)", len(boards))
	for _, board := range boards {
		tree, err := f.scanner.ParseFile(board)
		if err != nil {
			f.log.Warning("could not read %s: %v", filepath.Base(board), err)
			continue
		}
		for ref := range sexpr.FindBoardFootprints(tree) {
			refs[ref] = struct{}{}
		}
	}

	var external []sexpr.LibRef
	for ref := range refs {
		if ref.Library == f.cfg.LocalLibName {
			continue
		}
		external = append(external, ref)
	}
	sort.Slice(external, func(i, j int) bool {
		return external[i].String() < external[j].String()
	})

	f.log.Info("found %d external footprint reference(s)", len(external))
	return external, nil
}

// CopyFootprints copies each referenced footprint's .kicad_mod file into
// the local library directory, resolving source libraries through the
// global fp-lib-table. Footprints already present locally are skipped.
func (f *FootprintLocalizer) CopyFootprints(projectDir, localLibPath string, refs []sexpr.LibRef) ([]CopiedFootprint, error) {
	var copied []CopiedFootprint

	// Resolve each source library once.
	libPaths := make(map[string]string)
	for _, ref := range refs {
		if _, done := libPaths[ref.Library]; done {
			continue
		}
		if path, ok := f.libs.FindFootprintLibraryPath(ref.Library, projectDir); ok {
			libPaths[ref.Library] = path
		}
	}

	for _, ref := range refs {
		libPath, ok := libPaths[ref.Library]
		if !ok {
			f.log.Warning("skipping %s: source library not found", ref)
			continue
		}

		src := filepath.Join(libPath, ref.Name+ExtFootprint)
		dst := filepath.Join(localLibPath, ref.Name+ExtFootprint)

		if _, err := os.Stat(src); err != nil {
			f.log.Warning("footprint file not found: %s", src)
			continue
		}
		if _, err := os.Stat(dst); err == nil {
			f.log.Info("already local: %s", ref.Name)
			copied = append(copied, CopiedFootprint{Library: ref.Library, Name: ref.Name, SourcePath: src, DestPath: dst})
			continue
		}

		if f.writer.DryRun {
			f.log.Info("[dry-run] would copy %s to %s", src, dst)
		} else if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("copy footprint %s: %w", ref, err)
		} else {
			f.log.Success("copied %s", ref)
		}
		copied = append(copied, CopiedFootprint{Library: ref.Library, Name: ref.Name, SourcePath: src, DestPath: dst})
	}
	return copied, nil
}

// Localize3DModels copies the 3D model files referenced by the local
// footprint copies into the project models directory and rewrites the
// model paths inside each .kicad_mod file. Rewrites are positional so
// that identical old paths map to their own new paths.
func (f *FootprintLocalizer) Localize3DModels(projectDir string, copied []CopiedFootprint) (int, error) {
	modelsDir := filepath.Join(projectDir, f.cfg.ModelsDirName)
	localized := 0

	for _, fp := range copied {
		content, err := ReadTextFile(fp.DestPath)
		if err != nil {
			// In a dry run the local copy may not exist yet; read the
			// source instead so the diff still shows the rewrite.
			if f.writer.DryRun {
				content, err = ReadTextFile(fp.SourcePath)
			}
			if err != nil {
				f.log.Warning("could not read %s: %v", filepath.Base(fp.DestPath), err)
				continue
			}
		}

		models := sexpr.Find3DModels(f.scanner.Parser().Parse(content))
		if len(models) == 0 {
			continue
		}

		var oldRefs, newRefs []string
		for _, model := range models {
			srcModel := ExpandPath(model, projectDir)
			if _, err := os.Stat(srcModel); err != nil {
				f.log.Warning("3D model not found: %s", srcModel)
				continue
			}

			base := filepath.Base(srcModel)
			dstModel := filepath.Join(modelsDir, base)
			if _, err := os.Stat(dstModel); err != nil {
				if f.writer.DryRun {
					f.log.Info("[dry-run] would copy model %s", base)
				} else {
					if err := os.MkdirAll(modelsDir, 0o755); err != nil {
						return localized, fmt.Errorf("create models directory: %w", err)
					}
					if err := copyFile(srcModel, dstModel); err != nil {
						return localized, fmt.Errorf("copy model %s: %w", base, err)
					}
					f.log.Success("copied model %s", base)
				}
			}

			oldRefs = append(oldRefs, model)
			newRefs = append(newRefs, ProjectPath(f.cfg.ModelsDirName, base))
		}
		if len(oldRefs) == 0 {
			continue
		}

		updated := ReplaceQuoted(content, oldRefs, newRefs)
		if err := f.writer.Write(fp.DestPath, content, updated); err != nil {
			return localized, err
		}
		if updated != content {
			localized++
		}
	}
	return localized, nil
}

// footprintProperty builds the exact schematic text of a footprint
// property carrying the given reference.
func footprintProperty(ref string) string {
	return `(property "Footprint" "` + ref + `"`
}

// UpdateSchematicReferences rewrites every footprint property in the
// project schematics from its source library to the local library.
// Returns the number of files modified.
func (f *FootprintLocalizer) UpdateSchematicReferences(projectDir string, copied []CopiedFootprint) (int, error) {
	refMap := make(RefMap)
	for _, fp := range copied {
		old := footprintProperty(fp.Library + ":" + fp.Name)
		refMap[old] = footprintProperty(fp.LocalRef(f.cfg.LocalLibName))
	}
	return f.rewriteFiles(projectDir, FindSchematicFiles, refMap)
}

// UpdateBoardReferences rewrites footprint identifiers in board files to
// the local library. Returns the number of files modified.
func (f *FootprintLocalizer) UpdateBoardReferences(projectDir string, copied []CopiedFootprint) (int, error) {
	refMap := make(RefMap)
	for _, fp := range copied {
		old := `(footprint "` + fp.Library + ":" + fp.Name + `"`
		refMap[old] = `(footprint "` + fp.LocalRef(f.cfg.LocalLibName) + `"`
	}
	return f.rewriteFiles(projectDir, FindBoardFiles, refMap)
}

func (f *FootprintLocalizer) rewriteFiles(projectDir string, find func(string) ([]string, error), refMap RefMap) (int, error) {
	if len(refMap) == 0 {
		return 0, nil
	}

	files, err := find(projectDir)
	if err != nil {
		return 0, err
	}

	modified := 0
	for _, file := range files {
		content, err := ReadTextFile(file)
		if err != nil {
			f.log.Warning("could not read %s: %v", filepath.Base(file), err)
			continue
		}
		updated, replaced := refMap.Apply(content)
		if replaced == 0 {
			continue
		}
		if err := f.writer.Write(file, content, updated); err != nil {
			return modified, err
		}
		f.log.Success("updated %d reference(s) in %s", replaced, filepath.Base(file))
		modified++
	}
	return modified, nil
}

// Run executes the whole footprint localization flow and returns how many
// footprints were localized.
func (f *FootprintLocalizer) Run(projectDir string) (int, error) {
	refs, err := f.ScanReferences(projectDir)
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		f.log.Info("no external footprint references found")
		return 0, nil
	}

	localLibPath, err := f.libs.CreateLocalFootprintLibrary(projectDir, f.cfg.LocalLibName)
	if err != nil {
		return 0, err
	}

	copied, err := f.CopyFootprints(projectDir, localLibPath, refs)
	if err != nil {
		return 0, err
	}
	if len(copied) == 0 {
		f.log.Warning("no footprints could be copied")
		return 0, nil
	}

	if _, err := f.Localize3DModels(projectDir, copied); err != nil {
		return 0, err
	}
	if _, err := f.UpdateSchematicReferences(projectDir, copied); err != nil {
		return 0, err
	}
	if _, err := f.UpdateBoardReferences(projectDir, copied); err != nil {
		return 0, err
	}
	if err := f.libs.UpdateFPLibTable(f.writer, projectDir, f.cfg.LocalLibName); err != nil {
		return 0, err
	}

	f.log.Success("localized %d footprint(s) into %s%s", len(copied), f.cfg.LocalLibName, ExtFootprintLib)
	return len(copied), nil
}
