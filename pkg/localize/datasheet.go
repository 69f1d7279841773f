package localize

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/AdrianWest/Bakery/pkg/sexpr"
)

const (
	datasheetUserAgent = "Mozilla/5.0"

	probeTimeout    = 10 * time.Second
	downloadTimeout = 30 * time.Second
)

// pdfMagic is the signature at the start of every PDF file.
var pdfMagic = []byte("%PDF")

// DatasheetRef is one datasheet reference found while scanning, paired
// with the symbol that carries it (used for fallback file naming).
type DatasheetRef struct {
	Owner string
	Ref   string
}

// DatasheetLocalizer downloads or copies component datasheets into a
// project-local directory and rewrites the Datasheet properties in symbol
// libraries and schematics to ${KIPRJMOD} paths.
type DatasheetLocalizer struct {
	cfg        Config
	scanner    *Scanner
	writer     *FileWriter
	classifier Classifier
	log        Logger

	// Client performs HTTP requests; replaced by tests.
	Client *http.Client
}

// NewDatasheetLocalizer wires a datasheet localizer from the run's shared
// pieces; log may be nil.
func NewDatasheetLocalizer(cfg Config, scanner *Scanner, writer *FileWriter, log Logger) *DatasheetLocalizer {
	return &DatasheetLocalizer{
		cfg:        cfg,
		scanner:    scanner,
		writer:     writer,
		classifier: DatasheetClassifier(),
		log:        ensureLogger(log),
		Client:     &http.Client{Timeout: downloadTimeout},
	}
}

// ScanSymbolLibrary extracts the actionable datasheet references from one
// .kicad_sym file. seen carries dedup state across files so the same URL
// referenced by several libraries is processed once.
func (d *DatasheetLocalizer) ScanSymbolLibrary(path string, seen Seen) []DatasheetRef {
	d.log.Info("scanning symbol library for datasheets: %s", filepath.Base(path))

	tree, err := d.scanner.ParseFile(path)
	if err != nil {
		d.log.Error("failed to read symbol library %s: %v", path, err)
		return nil
	}
	return d.collectRefs(sexpr.FindProperties(tree, "Datasheet"), seen)
}

// ScanSchematic extracts the actionable datasheet references from one
// .kicad_sch file. Schematics are scanned as well as libraries because on
// a re-run the local symbol library already holds ${KIPRJMOD} paths while
// schematics may still carry the original URLs.
func (d *DatasheetLocalizer) ScanSchematic(path string, seen Seen) []DatasheetRef {
	d.log.Info("scanning schematic for datasheets: %s", filepath.Base(path))

	tree, err := d.scanner.ParseFile(path)
	if err != nil {
		d.log.Error("failed to read schematic %s: %v", path, err)
		return nil
	}
	return d.collectRefs(sexpr.FindProperties(tree, "Datasheet"), seen)
}

func (d *DatasheetLocalizer) collectRefs(props []sexpr.PropertyValue, seen Seen) []DatasheetRef {
	var refs []DatasheetRef
	nonPDF := 0
	for _, prop := range props {
		switch d.classifier.Classify(prop.Value, seen) {
		case VerdictAdd:
			refs = append(refs, DatasheetRef{Owner: prop.Owner, Ref: prop.Value})
		case VerdictNonPDF:
			nonPDF++
		}
	}
	d.log.Info("found %d unique datasheet reference(s)", len(refs))
	if nonPDF > 0 {
		d.log.Info("skipped %d non-PDF local datasheet(s)", nonPDF)
	}
	return refs
}

// resolveFilename determines the destination file name for a reference.
// URL references without a .pdf path component are probed via HEAD. ok is
// false when the resource is confirmed to not be a PDF.
func (d *DatasheetLocalizer) resolveFilename(ref DatasheetRef) (string, bool) {
	if !IsWebURL(ref.Ref) {
		return filepath.Base(ref.Ref), true
	}

	if parsed, err := url.Parse(ref.Ref); err == nil {
		base := path.Base(parsed.Path)
		if unescaped, err := url.PathUnescape(base); err == nil {
			base = unescaped
		}
		if base != "" && strings.HasSuffix(strings.ToLower(base), ".pdf") {
			return base, true
		}
	}
	return d.probeURLFilename(ref)
}

// probeURLFilename issues a HEAD request to name a URL that does not end
// in .pdf. A clearly non-PDF Content-Type skips the reference; a failed
// probe falls back to a name derived from the owning symbol so the
// download is still attempted (the PDF magic check catches impostors).
func (d *DatasheetLocalizer) probeURLFilename(ref DatasheetRef) (string, bool) {
	safe := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(ref.Owner)
	if safe == "" {
		safe = "datasheet"
	}
	fallback := safe + ".pdf"

	resp, err := d.head(ref.Ref)
	if err != nil {
		d.log.Warning("could not probe %s: %v, will attempt download", ref.Ref, err)
		return fallback, true
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "pdf") {
		for _, prefix := range []string{"text/html", "text/plain", "application/json", "application/xml", "image/"} {
			if strings.HasPrefix(contentType, prefix) {
				d.log.Info("content type %q is not PDF, skipping: %s", contentType, ref.Ref)
				return "", false
			}
		}
	}

	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
					name += ".pdf"
				}
				return name, true
			}
		}
	}
	return fallback, true
}

func (d *DatasheetLocalizer) head(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", datasheetUserAgent)
	client := *d.Client
	client.Timeout = probeTimeout
	return client.Do(req)
}

// Download fetches a datasheet URL into destPath. When the destination
// already exists, the remote Last-Modified header decides whether to
// re-download; an up-to-date local copy is kept.
func (d *DatasheetLocalizer) Download(rawURL, destPath string) error {
	d.log.Info("downloading datasheet from: %s", rawURL)

	if info, err := os.Stat(destPath); err == nil {
		if d.remoteIsOlder(rawURL, info.ModTime()) {
			d.log.Info("local file is up-to-date, skipping download")
			return nil
		}
	}

	if d.writer.DryRun {
		d.log.Info("[dry-run] would download %s", filepath.Base(destPath))
		return nil
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", datasheetUserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()
	size, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	d.log.Success("downloaded %s (%d bytes)", filepath.Base(destPath), size)

	if !isValidPDF(destPath) {
		d.log.Warning("downloaded file does not appear to be a PDF: %s", filepath.Base(destPath))
	}
	return nil
}

// remoteIsOlder reports whether the resource at rawURL is no newer than
// localMTime. An unreachable server or missing Last-Modified header means
// the file is re-downloaded.
func (d *DatasheetLocalizer) remoteIsOlder(rawURL string, localMTime time.Time) bool {
	resp, err := d.head(rawURL)
	if err != nil {
		d.log.Warning("cannot check remote file date: %v, re-downloading", err)
		return false
	}
	defer resp.Body.Close()

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		d.log.Info("cannot determine remote file date, re-downloading")
		return false
	}
	remote, err := http.ParseTime(lastModified)
	if err != nil {
		return false
	}
	return !remote.After(localMTime)
}

// isValidPDF checks the file's first bytes for the PDF signature.
func isValidPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return string(header) == string(pdfMagic)
}

// CopyDatasheets downloads URL references and copies local file
// references into the datasheet directory. It returns the rewrite map
// from old references to their new ${KIPRJMOD} paths, plus the download
// and copy counts.
func (d *DatasheetLocalizer) CopyDatasheets(projectDir string, refs []DatasheetRef) (RefMap, int, int, error) {
	destDir := filepath.Join(projectDir, d.cfg.DatasheetDirName)
	d.log.Info("copying datasheets to: %s", destDir)

	if !d.writer.DryRun {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, 0, 0, fmt.Errorf("create datasheet directory: %w", err)
		}
	}

	refMap := make(RefMap)
	downloaded, copied := 0, 0

	for _, ref := range refs {
		d.log.Info("processing datasheet: %s", ref.Ref)

		filename, ok := d.resolveFilename(ref)
		if !ok {
			continue
		}
		destPath := filepath.Join(destDir, filename)
		newRef := ProjectPath(d.cfg.DatasheetDirName, filename)

		if IsWebURL(ref.Ref) {
			if err := d.Download(ref.Ref, destPath); err != nil {
				d.log.Error("%v", err)
				continue
			}
			downloaded++
			refMap[ref.Ref] = newRef
			continue
		}

		src := ExpandPath(ref.Ref, projectDir)
		srcInfo, err := os.Stat(src)
		if err != nil {
			d.log.Error("source file not found: %s", src)
			continue
		}
		if destInfo, err := os.Stat(destPath); err == nil && !srcInfo.ModTime().After(destInfo.ModTime()) {
			d.log.Info("destination file is up-to-date: %s", filename)
			copied++
			refMap[ref.Ref] = newRef
			continue
		}
		if d.writer.DryRun {
			d.log.Info("[dry-run] would copy %s", filename)
		} else if err := copyFile(src, destPath); err != nil {
			d.log.Error("error copying file: %v", err)
			continue
		} else {
			d.log.Success("copied %s", filename)
		}
		copied++
		refMap[ref.Ref] = newRef
	}

	d.log.Info("downloaded %d datasheet(s), copied %d from local files", downloaded, copied)
	return refMap, downloaded, copied, nil
}

// updateFileReferences rewrites datasheet references in one file.
func (d *DatasheetLocalizer) updateFileReferences(path string, refMap RefMap) (bool, error) {
	content, err := ReadTextFile(path)
	if err != nil {
		d.log.Error("failed to read %s: %v", path, err)
		return false, nil
	}
	updated, replaced := refMap.Apply(content)
	if replaced == 0 {
		return false, nil
	}
	if err := d.writer.Write(path, content, updated); err != nil {
		return false, err
	}
	d.log.Success("updated %d reference(s) in %s", replaced, filepath.Base(path))
	return true, nil
}

// Run localizes every datasheet referenced by the given symbol libraries
// and the project schematics, then rewrites the references in both. It
// returns the number of datasheets processed and files updated.
func (d *DatasheetLocalizer) Run(projectDir string, symbolLibs []string) (int, int, error) {
	d.log.Info("starting datasheet localization...")

	schematics, err := FindSchematicFiles(projectDir)
	if err != nil {
		return 0, 0, err
	}

	// One dedup set across libraries and schematics.
	seen := NewSeen()
	var refs []DatasheetRef
	for _, lib := range symbolLibs {
		if _, err := os.Stat(lib); err == nil {
			refs = append(refs, d.ScanSymbolLibrary(lib, seen)...)
		}
	}
	for _, sch := range schematics {
		refs = append(refs, d.ScanSchematic(sch, seen)...)
	}
	d.log.Info("found %d unique datasheet reference(s) across symbol libs and schematics", len(refs))
	if len(refs) == 0 {
		return 0, 0, nil
	}

	refMap, downloaded, copied, err := d.CopyDatasheets(projectDir, refs)
	if err != nil {
		return 0, 0, err
	}
	if len(refMap) == 0 {
		d.log.Warning("no datasheet mappings created, skipping reference updates")
		return 0, 0, nil
	}

	updated := 0
	for _, file := range append(append([]string{}, symbolLibs...), schematics...) {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		changed, err := d.updateFileReferences(file, refMap)
		if err != nil {
			return downloaded + copied, updated, err
		}
		if changed {
			updated++
		}
	}

	d.log.Success("datasheet localization complete: %d processed (%d downloaded, %d copied), %d file(s) updated",
		downloaded+copied, downloaded, copied, updated)
	return downloaded + copied, updated, nil
}
